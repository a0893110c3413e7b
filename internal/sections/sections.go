// Package sections maps classified fact changes to the documentation
// sections that must be regenerated. The impact table is static
// configuration, not runtime state; it is total over every
// (kind, category) pair the classifier can produce.
package sections

import (
	"sort"

	"github.com/docfacts/docfacts/internal/facts"
)

// Documentation section identifiers.
const (
	APIReference      = "api-reference"
	ClaudeMD          = "claude-md"
	DomainModel       = "domain-model"
	DatabaseSchema    = "database-schema"
	RulesDomain       = "rules-domain"
	DocsDomain        = "docs-domain"
	IntegrationPoints = "integration-points"
	RulesArchitecture = "rules-architecture"
	ExceptionHandling = "exception-handling"
	Configuration     = "configuration"
	BusinessRules     = "business-rules"
)

// All returns every known section identifier, sorted.
func All() []string {
	return []string{
		APIReference,
		BusinessRules,
		ClaudeMD,
		Configuration,
		DatabaseSchema,
		DocsDomain,
		DomainModel,
		ExceptionHandling,
		IntegrationPoints,
		RulesArchitecture,
		RulesDomain,
	}
}

// impactTable maps fact kind -> change category -> impacted sections.
// Empty slices are deliberate: removing a config property or adding a
// service class implies no regeneration.
var impactTable = map[string]map[string][]string{
	facts.KindEndpoint: {
		facts.CategoryAdded:    {APIReference, ClaudeMD},
		facts.CategoryModified: {APIReference, ClaudeMD},
		facts.CategoryRemoved:  {APIReference},
	},
	facts.KindEntity: {
		facts.CategoryAdded:    {DomainModel, DatabaseSchema, RulesDomain, DocsDomain},
		facts.CategoryModified: {DomainModel, DatabaseSchema, RulesDomain, DocsDomain},
		facts.CategoryRemoved:  {DomainModel, DatabaseSchema},
	},
	facts.KindKafkaConsumer: {
		facts.CategoryAdded:    {IntegrationPoints, RulesArchitecture},
		facts.CategoryModified: {IntegrationPoints, RulesArchitecture},
		facts.CategoryRemoved:  {IntegrationPoints, RulesArchitecture},
	},
	facts.KindKafkaProducer: {
		facts.CategoryAdded:    {IntegrationPoints, RulesArchitecture},
		facts.CategoryModified: {IntegrationPoints, RulesArchitecture},
		facts.CategoryRemoved:  {IntegrationPoints, RulesArchitecture},
	},
	facts.KindFeignClient: {
		facts.CategoryAdded:    {IntegrationPoints, ClaudeMD},
		facts.CategoryModified: {IntegrationPoints, ClaudeMD},
		facts.CategoryRemoved:  {IntegrationPoints, ClaudeMD},
	},
	facts.KindException: {
		facts.CategoryAdded:    {ExceptionHandling},
		facts.CategoryModified: {ExceptionHandling},
		facts.CategoryRemoved:  {ExceptionHandling},
	},
	facts.KindConfigProperty: {
		facts.CategoryAdded:    {Configuration},
		facts.CategoryModified: {Configuration},
		facts.CategoryRemoved:  {}, // config docs are best-effort on removal
	},
	facts.KindService: {
		facts.CategoryAdded:    {},
		facts.CategoryModified: {BusinessRules},
		facts.CategoryRemoved:  {},
	},
}

// For returns the sections impacted by one (kind, category) pair. Unknown
// pairs return an empty set rather than failing; the mapping is total by
// construction for every kind the extractor can emit.
func For(kind, category string) []string {
	if byCat, ok := impactTable[kind]; ok {
		if ss, ok := byCat[category]; ok {
			return ss
		}
	}
	return nil
}

// MapChanges returns the sorted union of sections impacted by the given
// changes. Callers use the result to decide which templates to re-render.
func MapChanges(changes []facts.Change) []string {
	set := make(map[string]struct{})
	for _, c := range changes {
		for _, s := range For(c.Kind, c.Category) {
			set[s] = struct{}{}
		}
	}
	result := make([]string, 0, len(set))
	for s := range set {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// KindsFor inverts the impact table: it returns the fact kinds that can
// impact any of the given sections, in canonical kind order. Used by
// selective mode to narrow the rule set before scanning.
func KindsFor(requested []string) []string {
	want := make(map[string]struct{}, len(requested))
	for _, s := range requested {
		want[s] = struct{}{}
	}
	var result []string
	for _, kind := range facts.Kinds {
		impacts := false
		for _, ss := range impactTable[kind] {
			for _, s := range ss {
				if _, ok := want[s]; ok {
					impacts = true
				}
			}
		}
		if impacts {
			result = append(result, kind)
		}
	}
	return result
}

// Known reports whether a section identifier is defined.
func Known(section string) bool {
	for _, s := range All() {
		if s == section {
			return true
		}
	}
	return false
}
