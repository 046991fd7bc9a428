package sarif

// Report is the top level SARIF log.
type Report struct {
	Version string `json:"version"`
	Schema  string `json:"$schema,omitempty"`
	Runs    []*Run `json:"runs"`
}

// Run describes a single run of an analysis tool.
type Run struct {
	Tool       *Tool            `json:"tool"`
	Taxonomies []*ToolComponent `json:"taxonomies,omitempty"`
	Results    []*Result        `json:"results"`
}

// Tool wraps the component that produced the run.
type Tool struct {
	Driver *ToolComponent `json:"driver"`
}

// ToolComponent is a component of a tool, such as the driver or a taxonomy.
type ToolComponent struct {
	Name                                        string                    `json:"name"`
	Version                                     string                    `json:"version,omitempty"`
	SemanticVersion                             string                    `json:"semanticVersion,omitempty"`
	InformationURI                              string                    `json:"informationUri,omitempty"`
	DownloadURI                                 string                    `json:"downloadUri,omitempty"`
	ReleaseDateUtc                              string                    `json:"releaseDateUtc,omitempty"`
	Organization                                string                    `json:"organization,omitempty"`
	GUID                                        string                    `json:"guid,omitempty"`
	Language                                    string                    `json:"language,omitempty"`
	IsComprehensive                             bool                      `json:"isComprehensive,omitempty"`
	MinimumRequiredLocalizedDataSemanticVersion string                    `json:"minimumRequiredLocalizedDataSemanticVersion,omitempty"`
	ShortDescription                            *MultiformatMessageString `json:"shortDescription,omitempty"`
	SupportedTaxonomies                         []*ToolComponentReference `json:"supportedTaxonomies,omitempty"`
	Rules                                       []*ReportingDescriptor    `json:"rules,omitempty"`
	Taxa                                        []*ReportingDescriptor    `json:"taxa,omitempty"`
}

// ToolComponentReference identifies a tool component.
type ToolComponentReference struct {
	Name string `json:"name,omitempty"`
	GUID string `json:"guid,omitempty"`
}

// ReportingDescriptor describes a rule or a taxon.
type ReportingDescriptor struct {
	ID                   string                             `json:"id"`
	GUID                 string                             `json:"guid,omitempty"`
	Name                 string                             `json:"name,omitempty"`
	HelpURI              string                             `json:"helpUri,omitempty"`
	ShortDescription     *MultiformatMessageString          `json:"shortDescription,omitempty"`
	FullDescription      *MultiformatMessageString          `json:"fullDescription,omitempty"`
	Help                 *MultiformatMessageString          `json:"help,omitempty"`
	Properties           *PropertyBag                       `json:"properties,omitempty"`
	DefaultConfiguration *ReportingConfiguration            `json:"defaultConfiguration,omitempty"`
	Relationships        []*ReportingDescriptorRelationship `json:"relationships,omitempty"`
}

// ReportingConfiguration holds the default settings of a rule.
type ReportingConfiguration struct {
	Level Level `json:"level,omitempty"`
}

// ReportingDescriptorRelationship links a rule to a taxon.
type ReportingDescriptorRelationship struct {
	Target *ReportingDescriptorReference `json:"target"`
	Kinds  []string                      `json:"kinds,omitempty"`
}

// ReportingDescriptorReference points to a descriptor of another component.
type ReportingDescriptorReference struct {
	ID            string                  `json:"id,omitempty"`
	GUID          string                  `json:"guid,omitempty"`
	ToolComponent *ToolComponentReference `json:"toolComponent,omitempty"`
}

// Result is a single finding.
type Result struct {
	RuleID       string         `json:"ruleId"`
	RuleIndex    int            `json:"ruleIndex"`
	Level        Level          `json:"level,omitempty"`
	Message      *Message       `json:"message"`
	Locations    []*Location    `json:"locations,omitempty"`
	Suppressions []*Suppression `json:"suppressions,omitempty"`
}

// Suppression records that a result was suppressed in source.
type Suppression struct {
	Kind          string `json:"kind"`
	Justification string `json:"justification,omitempty"`
}

// Location of a result.
type Location struct {
	PhysicalLocation *PhysicalLocation `json:"physicalLocation,omitempty"`
}

// PhysicalLocation is a file and region.
type PhysicalLocation struct {
	ArtifactLocation *ArtifactLocation `json:"artifactLocation,omitempty"`
	Region           *Region           `json:"region,omitempty"`
}

// ArtifactLocation is the URI of a scanned file.
type ArtifactLocation struct {
	URI string `json:"uri,omitempty"`
}

// Region within a file.
type Region struct {
	StartLine      int              `json:"startLine,omitempty"`
	EndLine        int              `json:"endLine,omitempty"`
	StartColumn    int              `json:"startColumn,omitempty"`
	EndColumn      int              `json:"endColumn,omitempty"`
	SourceLanguage string           `json:"sourceLanguage,omitempty"`
	Snippet        *ArtifactContent `json:"snippet,omitempty"`
}

// ArtifactContent is a snippet of file content.
type ArtifactContent struct {
	Text string `json:"text,omitempty"`
}

// Message is plain text attached to a result.
type Message struct {
	Text string `json:"text,omitempty"`
}

// MultiformatMessageString is a message with plain text content.
type MultiformatMessageString struct {
	Text string `json:"text"`
}

// PropertyBag holds extra properties.
type PropertyBag map[string]interface{}
