package export

// AssociatedData is a value from the FHIR-spec-defined closed set of codes
// controlling inclusion of provenance and similar ancillary resources in an
// export, extensible with custom underscore-prefixed codes (per GLOSSARY).
type AssociatedData struct {
	code string
}

// Named AssociatedData values from the FHIR Bulk Data spec's
// includeAssociatedData parameter.
var (
	LatestProvenanceResources  = AssociatedData{code: "LatestProvenanceResources"}
	RelevantProvenanceResources = AssociatedData{code: "RelevantProvenanceResources"}
	RelevantEncounters          = AssociatedData{code: "RelevantEncounters"}
)

// CustomAssociatedData wraps a server-specific code, which the FHIR spec
// requires to be prefixed with an underscore.
func CustomAssociatedData(code string) AssociatedData {
	return AssociatedData{code: "_" + code}
}

// Code returns the wire representation of this value.
func (a AssociatedData) Code() string { return a.code }

// AssociatedDataFromCode maps a bare string code onto a named value when one
// matches, and a CustomAssociatedData otherwise. Grounded on
// BulkExportClient.java's withIncludeAssociatedData(List<String>) overload,
// which the distilled spec dropped (see SPEC_FULL.md §3).
func AssociatedDataFromCode(code string) AssociatedData {
	for _, known := range []AssociatedData{LatestProvenanceResources, RelevantProvenanceResources, RelevantEncounters} {
		if known.code == code {
			return known
		}
	}
	if len(code) > 0 && code[0] == '_' {
		return AssociatedData{code: code}
	}
	return CustomAssociatedData(code)
}
