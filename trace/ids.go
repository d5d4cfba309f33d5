// Package trace defines the shared vocabulary of the traceability engine:
// registry ID types, diagnostic codes and severities, and the aggregated
// validation result model.
package trace

import (
	"fmt"
	"regexp"
	"strings"
)

// IDType classifies a registry record by the prefix of its ID.
type IDType string

// The sixteen registry types. REST endpoints live in the Interface registry
// (IF) with kind "rest_api", matching the upstream registry layout.
const (
	TypeBR   IDType = "BR"   // Business Requirement
	TypeUR   IDType = "UR"   // User Requirement
	TypeFEAT IDType = "FEAT" // Feature
	TypeCF   IDType = "CF"   // Call Flow
	TypeFR   IDType = "FR"   // Functional Requirement
	TypeNFR  IDType = "NFR"  // Non-Functional Requirement
	TypeTSR  IDType = "TSR"  // Technical & System Requirement
	TypeTCR  IDType = "TCR"  // Transitional & Compliance Requirement
	TypeV    IDType = "V"    // Verification
	TypeTC   IDType = "TC"   // Test Case
	TypeEA   IDType = "EA"   // Evidence Artifact
	TypeSVC  IDType = "SVC"  // Service
	TypeIF   IDType = "IF"   // Interface (REST endpoints included)
	TypeEVT  IDType = "EVT"  // Event
	TypeGQL  IDType = "GQL"  // GraphQL Operation
	TypeRPC  IDType = "RPC"  // gRPC Method
)

// AllTypes lists every registry type in canonical order.
var AllTypes = []IDType{
	TypeBR, TypeUR, TypeFEAT, TypeCF,
	TypeFR, TypeNFR, TypeTSR, TypeTCR,
	TypeV, TypeTC, TypeEA, TypeSVC,
	TypeIF, TypeEVT, TypeGQL, TypeRPC,
}

// RequirementTypes are the types counted as "requirements that need code".
var RequirementTypes = []IDType{TypeFR, TypeNFR, TypeTSR, TypeTCR}

// idPattern validates the canonical ID syntax: TYPE-DOMAIN-NNN,
// e.g. "FR-AUTH-001". The domain segment is uppercase alphanumeric.
var idPattern = regexp.MustCompile(`^([A-Z]+)-[A-Z][A-Z0-9]*-\d{3}$`)

var knownTypes = func() map[IDType]bool {
	m := make(map[IDType]bool, len(AllTypes))
	for _, t := range AllTypes {
		m[t] = true
	}
	return m
}()

// TypeOf extracts the registry type from an ID string.
// It returns false if the prefix is not one of the sixteen known types.
func TypeOf(id string) (IDType, bool) {
	prefix, _, found := strings.Cut(id, "-")
	if !found {
		return "", false
	}
	t := IDType(prefix)
	return t, knownTypes[t]
}

// ValidID reports whether id is syntactically well-formed and carries a
// known type prefix.
func ValidID(id string) bool {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return false
	}
	return knownTypes[IDType(m[1])]
}

// CheckID returns a descriptive error for a malformed or unknown ID.
func CheckID(id string) error {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return fmt.Errorf("malformed ID %q: expected TYPE-DOMAIN-NNN (e.g. FR-AUTH-001)", id)
	}
	if !knownTypes[IDType(m[1])] {
		return fmt.Errorf("unknown registry type %q in ID %q", m[1], id)
	}
	return nil
}

// findPattern matches IDs embedded in free text, e.g. registry record
// fields that reference related IDs inline.
var findPattern = regexp.MustCompile(`\b[A-Z]+-[A-Z][A-Z0-9]*-\d{3}\b`)

// FindIDs extracts every well-formed known-type ID embedded in text, in
// order of appearance, de-duplicated.
func FindIDs(text string) []string {
	var ids []string
	seen := make(map[string]bool)
	for _, id := range findPattern.FindAllString(text, -1) {
		if seen[id] || !ValidID(id) {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// IsRequirement reports whether t is one of the requirement types that
// must be backed by mapped code.
func IsRequirement(t IDType) bool {
	switch t {
	case TypeFR, TypeNFR, TypeTSR, TypeTCR:
		return true
	}
	return false
}
