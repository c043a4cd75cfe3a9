// Package datamodel implements the canonical in-memory representation of a
// TR-181 device data model.
//
// # Node Tree
//
// A device data model is a tree of named nodes rooted at "Device.". Object
// nodes are containers (their paths conventionally end with a dot); parameter
// nodes are leaves carrying a typed value:
//
//	Device.
//	├── Device.DeviceInfo.
//	│   ├── Device.DeviceInfo.Manufacturer
//	│   └── Device.DeviceInfo.SoftwareVersion
//	└── Device.WiFi.
//	    └── Device.WiFi.Radio.1.
//	        ├── Device.WiFi.Radio.1.Channel
//	        └── Device.WiFi.Radio.1.TransmitPower
//
// A node's identity is its full dot-separated path, unique within a
// collection. Parent and child links are not authoritative input data: they
// are reconstructed from path structure by LinkNodes after a whole collection
// is known, because discovery order is not parent-before-child.
//
// # Values and Types
//
// Parameter values are dynamically typed (any) and tagged with a DataType.
// CheckValueLenient and CheckValueStrict implement the two value-typing
// policies used by extractors: lenient accepts values that are plausibly
// convertible to the declared type (sources that serialize everything as
// strings), strict requires the runtime type to match exactly.
//
// The package is pure data plus invariants; it performs no I/O.
package datamodel
