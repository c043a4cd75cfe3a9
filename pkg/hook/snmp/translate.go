package snmp

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// Walked subtree roots.
const (
	oidSystemRoot     = "1.3.6.1.2.1.1"
	oidInterfacesRoot = "1.3.6.1.2.1.2"
)

// Mapped scalar OIDs.
const (
	oidSysDescr    = "1.3.6.1.2.1.1.1.0"
	oidSysUpTime   = "1.3.6.1.2.1.1.3.0"
	oidSysContact  = "1.3.6.1.2.1.1.4.0"
	oidSysName     = "1.3.6.1.2.1.1.5.0"
	oidSysLocation = "1.3.6.1.2.1.1.6.0"
	oidIfNumber    = "1.3.6.1.2.1.2.1.0"

	// oidIfEntry is the ifTable row prefix; column and instance follow.
	oidIfEntry = "1.3.6.1.2.1.2.2.1"
)

// interfacePathPrefix is the object every ifTable row maps under.
const interfacePathPrefix = "Device.Ethernet.Interface."

// conversion selects how a PDU value becomes a parameter value.
type conversion int

const (
	convString conversion = iota
	convInt
	convUptime
	convMAC
	convAdminEnable
	convOperStatus
	convMegabits
)

// paramInfo is one resolved translation between an OID and a path.
type paramInfo struct {
	oid  string
	path string
	typ  string
	conv conversion
}

type scalarEntry struct {
	oid  string
	path string
	typ  string
	conv conversion
}

// scalars is the mapped projection of the system group plus the interface
// count.
var scalars = []scalarEntry{
	{oidSysDescr, "Device.DeviceInfo.Description", "string", convString},
	{oidSysUpTime, "Device.DeviceInfo.UpTime", "unsignedInt", convUptime},
	{oidSysContact, "Device.DeviceInfo.Contact", "string", convString},
	{oidSysName, "Device.DeviceInfo.Name", "string", convString},
	{oidSysLocation, "Device.DeviceInfo.Location", "string", convString},
	{oidIfNumber, "Device.Ethernet.InterfaceNumberOfEntries", "unsignedInt", convInt},
}

type columnEntry struct {
	column int
	leaf   string
	typ    string
	conv   conversion
}

// ifColumns is the mapped projection of ifTable rows. The SNMP instance
// number doubles as the interface instance number.
var ifColumns = []columnEntry{
	{2, "Name", "string", convString},
	{5, "MaxBitRate", "unsignedInt", convMegabits},
	{6, "MACAddress", "string", convMAC},
	{7, "Enable", "boolean", convAdminEnable},
	{8, "Status", "string", convOperStatus},
}

var (
	scalarsByOID  = make(map[string]scalarEntry, len(scalars))
	scalarsByPath = make(map[string]scalarEntry, len(scalars))
	columnsByID   = make(map[int]columnEntry, len(ifColumns))
	columnsByLeaf = make(map[string]columnEntry, len(ifColumns))
)

func init() {
	for _, e := range scalars {
		scalarsByOID[e.oid] = e
		scalarsByPath[e.path] = e
	}
	for _, e := range ifColumns {
		columnsByID[e.column] = e
		columnsByLeaf[e.leaf] = e
	}
}

// infoForOID translates a device OID into its parameter mapping. Unmapped
// OIDs return false.
func infoForOID(oid string) (paramInfo, bool) {
	oid = strings.TrimPrefix(oid, ".")

	if e, ok := scalarsByOID[oid]; ok {
		return paramInfo{oid: e.oid, path: e.path, typ: e.typ, conv: e.conv}, true
	}

	row, ok := strings.CutPrefix(oid, oidIfEntry+".")
	if !ok {
		return paramInfo{}, false
	}
	columnStr, instanceStr, ok := strings.Cut(row, ".")
	if !ok || strings.Contains(instanceStr, ".") {
		return paramInfo{}, false
	}
	column, err := strconv.Atoi(columnStr)
	if err != nil {
		return paramInfo{}, false
	}
	instance, err := strconv.Atoi(instanceStr)
	if err != nil || instance <= 0 {
		return paramInfo{}, false
	}
	e, ok := columnsByID[column]
	if !ok {
		return paramInfo{}, false
	}

	return paramInfo{
		oid:  oid,
		path: fmt.Sprintf("%s%d.%s", interfacePathPrefix, instance, e.leaf),
		typ:  e.typ,
		conv: e.conv,
	}, true
}

// infoForPath translates a parameter path into its OID mapping. Unmapped
// paths return false.
func infoForPath(path string) (paramInfo, bool) {
	if e, ok := scalarsByPath[path]; ok {
		return paramInfo{oid: e.oid, path: e.path, typ: e.typ, conv: e.conv}, true
	}

	rest, ok := strings.CutPrefix(path, interfacePathPrefix)
	if !ok {
		return paramInfo{}, false
	}
	instanceStr, leaf, ok := strings.Cut(rest, ".")
	if !ok || strings.Contains(leaf, ".") {
		return paramInfo{}, false
	}
	instance, err := strconv.Atoi(instanceStr)
	if err != nil || instance <= 0 {
		return paramInfo{}, false
	}
	e, ok := columnsByLeaf[leaf]
	if !ok {
		return paramInfo{}, false
	}

	return paramInfo{
		oid:  fmt.Sprintf("%s.%d.%d", oidIfEntry, e.column, instance),
		path: path,
		typ:  e.typ,
		conv: e.conv,
	}, true
}

// rootsFor selects the OID subtrees whose mapped paths can intersect the
// prefix.
func rootsFor(prefix string) []string {
	var roots []string
	if overlaps(prefix, "Device.DeviceInfo.") {
		roots = append(roots, oidSystemRoot)
	}
	if overlaps(prefix, "Device.Ethernet.") {
		roots = append(roots, oidInterfacesRoot)
	}
	return roots
}

func overlaps(prefix, group string) bool {
	return strings.HasPrefix(group, prefix) || strings.HasPrefix(prefix, group)
}

// isMappedObject reports whether an object path contains mapped parameters.
func isMappedObject(path string) bool {
	if !strings.HasSuffix(path, ".") {
		return false
	}
	for _, e := range scalars {
		if strings.HasPrefix(e.path, path) {
			return true
		}
	}
	if strings.HasPrefix(interfacePathPrefix, path) {
		return true
	}
	rest, ok := strings.CutPrefix(path, interfacePathPrefix)
	if !ok {
		return false
	}
	instance := strings.TrimSuffix(rest, ".")
	if strings.Contains(instance, ".") {
		return false
	}
	n, err := strconv.Atoi(instance)
	return err == nil && n > 0
}

// objectAncestors returns every object prefix of a path, outermost first.
// The path itself is not included.
func objectAncestors(path string) []string {
	var out []string
	for i, c := range path {
		if c == '.' && i+1 < len(path) {
			out = append(out, path[:i+1])
		}
	}
	return out
}

// missingPDU reports response variables that mean "no such parameter".
func missingPDU(t gosnmp.Asn1BER) bool {
	switch t {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return true
	default:
		return false
	}
}

// convertPDU turns a PDU value into the parameter value for its mapping.
func convertPDU(pdu gosnmp.SnmpPDU, conv conversion) (any, error) {
	switch conv {
	case convString:
		return pduString(pdu)
	case convInt:
		return pduInt(pdu)
	case convUptime:
		// TimeTicks are hundredths of a second.
		v, err := pduInt(pdu)
		if err != nil {
			return nil, err
		}
		return v / 100, nil
	case convMegabits:
		// ifSpeed reports bits per second.
		v, err := pduInt(pdu)
		if err != nil {
			return nil, err
		}
		return v / 1_000_000, nil
	case convMAC:
		bs, ok := pdu.Value.([]byte)
		if !ok {
			return nil, fmt.Errorf("physical address is not a byte string but %T", pdu.Value)
		}
		if len(bs) == 0 {
			return "", nil
		}
		return net.HardwareAddr(bs).String(), nil
	case convAdminEnable:
		v, err := pduInt(pdu)
		if err != nil {
			return nil, err
		}
		return v == 1, nil
	case convOperStatus:
		v, err := pduInt(pdu)
		if err != nil {
			return nil, err
		}
		return operStatus(v), nil
	default:
		return nil, fmt.Errorf("unknown conversion %d", conv)
	}
}

func pduString(pdu gosnmp.SnmpPDU) (string, error) {
	switch pdu.Type {
	case gosnmp.OctetString:
		bs, ok := pdu.Value.([]byte)
		if !ok {
			return "", fmt.Errorf("OctetString is not a []byte but %T", pdu.Value)
		}
		return strings.ToValidUTF8(string(bs), "�"), nil
	case gosnmp.ObjectIdentifier:
		v, ok := pdu.Value.(string)
		if !ok {
			return "", fmt.Errorf("ObjectIdentifier is not a string but %T", pdu.Value)
		}
		return strings.TrimPrefix(v, "."), nil
	default:
		return "", fmt.Errorf("unsupported type %v for a string parameter", pdu.Type)
	}
}

func pduInt(pdu gosnmp.SnmpPDU) (int64, error) {
	switch pdu.Type {
	case gosnmp.Counter32, gosnmp.Counter64, gosnmp.Integer, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).Int64(), nil
	default:
		return 0, fmt.Errorf("unsupported type %v for an integer parameter", pdu.Type)
	}
}

// operStatus maps IF-MIB ifOperStatus values onto interface status names.
func operStatus(v int64) string {
	switch v {
	case 1:
		return "Up"
	case 2:
		return "Down"
	case 5:
		return "Dormant"
	case 6:
		return "NotPresent"
	case 7:
		return "LowerLayerDown"
	default:
		return "Unknown"
	}
}
