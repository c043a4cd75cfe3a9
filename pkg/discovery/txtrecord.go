package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeManagementTXT creates TXT records for a managed device announcement.
func EncodeManagementTXT(info *EndpointInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyType] = info.Type

	// Optional fields
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	if info.Path != "" {
		txt[TXTKeyPath] = info.Path
	}
	if info.Name != "" {
		txt[TXTKeyName] = info.Name
	}

	return txt
}

// DecodeManagementTXT parses TXT records from a managed device announcement.
func DecodeManagementTXT(txt TXTRecordMap) (*EndpointInfo, error) {
	info := &EndpointInfo{}

	// Parse hook type (required)
	var ok bool
	info.Type, ok = txt[TXTKeyType]
	if !ok || info.Type == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyType)
	}

	// Optional fields
	info.Version = txt[TXTKeyVersion]
	info.Name = txt[TXTKeyName]

	info.Path = txt[TXTKeyPath]
	if info.Path != "" && !strings.HasPrefix(info.Path, "/") {
		return nil, fmt.Errorf("%w: path must start with /", ErrInvalidTXTRecord)
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
// This format is commonly used by mDNS libraries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
