// Package validate checks TR-181 node collections and individual nodes for
// structural and semantic problems.
//
// Two validators exist. The collection validator ([Collection]) runs after
// every extraction and checks the shape of a whole node set: duplicate
// paths, malformed path segments, naming conventions, and that derived
// parent/child links resolve within the collection. The node validator
// ([NodeValidator]) checks a single node definition against an observed
// value using a pluggable rule set; the enhanced comparison engine runs it
// over every node shared between two sources.
//
// # Severity
//
// Collection checks classify findings as errors or warnings. Warnings never
// fail an extraction; whether errors abort is the calling extractor's
// policy, because a partially broken namespace can still be worth keeping.
//
// # Rules
//
// Node rules carry stable identifiers grouped by category:
//
//	RNG-xxx  range       value against declared numeric bounds, allowed
//	                     values, pattern, and maximum length
//	TYP-xxx  type        value against the declared data type
//	NAM-xxx  naming      path shape and segment conventions
//	ACC-xxx  access      access level against observed behavior
//
// The default rule set lives in the rules subpackage; registries are
// mutable so callers can disable rules or override severities per run.
package validate
