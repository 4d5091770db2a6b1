package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// buildKickOffRequest implements C8: it translates a validated Request into
// a GET or POST HTTP request against the level-specific path, per
// spec.md §4.6.
func buildKickOffRequest(req *Request) (*http.Request, error) {
	base, err := url.Parse(ensureTrailingSlash(req.FHIREndpointURL))
	if err != nil {
		return nil, fmt.Errorf("parsing FHIR endpoint: %w", err)
	}
	target, err := base.Parse(req.Level.path())
	if err != nil {
		return nil, fmt.Errorf("resolving export path: %w", err)
	}

	if len(req.Patients) > 0 {
		return buildPostRequest(target.String(), req)
	}
	return buildGetRequest(target.String(), req)
}

func ensureTrailingSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func buildGetRequest(target string, req *Request) (*http.Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parsing target URL: %w", err)
	}

	q := u.Query()
	if req.OutputFormat != "" {
		q.Set("_outputFormat", req.OutputFormat)
	}
	if req.Since != nil {
		q.Set("_since", formatFhirInstant(*req.Since))
	}
	if len(req.Types) > 0 {
		q.Set("_type", strings.Join(req.Types, ","))
	}
	if len(req.Elements) > 0 {
		q.Set("_elements", strings.Join(req.Elements, ","))
	}
	if len(req.TypeFilters) > 0 {
		q.Set("_typeFilter", strings.Join(req.TypeFilters, ","))
	}
	if len(req.IncludeAssociatedData) > 0 {
		q.Set("includeAssociatedData", joinAssociatedData(req.IncludeAssociatedData))
	}
	u.RawQuery = q.Encode()

	return http.NewRequest(http.MethodGet, u.String(), nil)
}

// fhirParameter is one entry of a FHIR Parameters resource.
type fhirParameter struct {
	Name            string           `json:"name"`
	ValueString     string           `json:"valueString,omitempty"`
	ValueReference  *fhirReference   `json:"valueReference,omitempty"`
}

type fhirReference struct {
	Reference string `json:"reference"`
}

type fhirParameters struct {
	ResourceType string          `json:"resourceType"`
	Parameter    []fhirParameter `json:"parameter"`
}

func buildPostRequest(target string, req *Request) (*http.Request, error) {
	lvl := req.Level
	if !lvl.patientSupported() {
		return nil, &ConfigurationError{
			Message: fmt.Sprintf("level %s does not support a patient list", lvl),
		}
	}

	params := fhirParameters{ResourceType: "Parameters"}

	if req.OutputFormat != "" {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "_outputFormat", ValueString: req.OutputFormat})
	}
	if req.Since != nil {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "_since", ValueString: formatFhirInstant(*req.Since)})
	}
	if len(req.Types) > 0 {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "_type", ValueString: strings.Join(req.Types, ",")})
	}
	if len(req.Elements) > 0 {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "_elements", ValueString: strings.Join(req.Elements, ",")})
	}
	if len(req.TypeFilters) > 0 {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "_typeFilter", ValueString: strings.Join(req.TypeFilters, ",")})
	}
	if len(req.IncludeAssociatedData) > 0 {
		params.Parameter = append(params.Parameter, fhirParameter{Name: "includeAssociatedData", ValueString: joinAssociatedData(req.IncludeAssociatedData)})
	}
	for _, patient := range req.Patients {
		params.Parameter = append(params.Parameter, fhirParameter{
			Name:           "patient",
			ValueReference: &fhirReference{Reference: patient.Reference},
		})
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encoding Parameters body: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/fhir+json; charset=UTF-8")
	return httpReq, nil
}

func joinAssociatedData(values []AssociatedData) string {
	codes := make([]string, 0, len(values))
	for _, v := range values {
		codes = append(codes, v.Code())
	}
	return strings.Join(codes, ",")
}
