package rules

import "github.com/docfacts/docfacts/internal/facts"

// Builtin returns the compiled built-in ruleset for Java/Spring codebases.
// A rules file given in the config replaces this set entirely.
func Builtin() []Rule {
	rr := []Rule{
		{
			Kind:   facts.KindEndpoint,
			Files:  "**/*.java",
			Marker: `@(?:(?:Get|Post|Put|Delete|Patch)Mapping|RequestMapping\s*\([^)]*method\s*=)`,
			Attributes: []AttributeExtractor{
				{Name: "httpMethod", Pattern: `@(Get|Post|Put|Delete|Patch)Mapping`},
				{Name: "httpMethod", Pattern: `method\s*=\s*(?:RequestMethod\.)?([A-Za-z]+)`, Window: 2},
				{Name: "path", Pattern: `@\w+Mapping\s*\(\s*(?:value\s*=\s*|path\s*=\s*)?"([^"]*)"`},
				{Name: "path", Pattern: `^\s*(?:value|path)\s*=\s*"([^"]*)"`, Window: 2, Direction: DirAfter},
				{Name: "basePath", Pattern: `@RequestMapping\s*\(\s*(?:value\s*=\s*|path\s*=\s*)?"([^"]*)"`, Window: 5, Scope: ScopeType},
			},
		},
		{
			Kind:   facts.KindEntity,
			Files:  "**/*.java",
			Marker: `@Entity\b`,
			Attributes: []AttributeExtractor{
				{Name: "tableName", Pattern: `@Table\s*\(\s*name\s*=\s*"([^"]+)"`, Window: 5},
			},
		},
		{
			Kind:   facts.KindKafkaConsumer,
			Files:  "**/*.java",
			Marker: `@KafkaListener`,
			Attributes: []AttributeExtractor{
				{Name: "topic", Pattern: `topics\s*=\s*\{?\s*"([^"]+)"`, Window: 3},
				{Name: "topic", Pattern: `@KafkaListener\s*\(\s*"([^"]+)"`},
				{Name: "groupId", Pattern: `groupId\s*=\s*"([^"]+)"`, Window: 3},
			},
		},
		{
			Kind:   facts.KindKafkaProducer,
			Files:  "**/*.java",
			Marker: `kafkaTemplate\.send\s*\(|KafkaTemplate\s*<`,
			Attributes: []AttributeExtractor{
				{Name: "topic", Pattern: `\.send\s*\(\s*"([^"]+)"`},
			},
		},
		{
			Kind:   facts.KindFeignClient,
			Files:  "**/*.java",
			Marker: `@FeignClient`,
			Attributes: []AttributeExtractor{
				{Name: "serviceName", Pattern: `@FeignClient\s*\([^)]*?(?:name|value)\s*=\s*"([^"]+)"`},
				{Name: "serviceName", Pattern: `@FeignClient\s*\(\s*"([^"]+)"`},
				{Name: "serviceName", Pattern: `^\s*(?:name|value)\s*=\s*"([^"]+)"`, Window: 2, Direction: DirAfter},
				{Name: "url", Pattern: `url\s*=\s*"([^"]+)"`, Window: 2},
			},
		},
		{
			Kind:     facts.KindException,
			Files:    "**/*.java",
			Marker:   `class\s+(\w+)\s+extends\s+\w*(?:Exception|Error)\b`,
			NameFrom: NameFromMarker,
			Attributes: []AttributeExtractor{
				{Name: "superclass", Pattern: `extends\s+(\w+)`},
				{Name: "httpStatus", Pattern: `@ResponseStatus\s*\(\s*(?:value\s*=\s*)?(?:HttpStatus\.)?(\w+)`, Window: 3, Direction: DirBefore},
			},
		},
		{
			Kind:     facts.KindConfigProperty,
			Files:    "**/application*.properties",
			Marker:   `^\s*([A-Za-z][\w.\-]*)\s*=`,
			NameFrom: NameFromMarker,
			Attributes: []AttributeExtractor{
				{Name: "value", Pattern: `^\s*[A-Za-z][\w.\-]*\s*=\s*(.*\S)\s*$`},
			},
		},
		{
			Kind:   facts.KindService,
			Files:  "**/*.java",
			Marker: `@Service\b`,
			Attributes: []AttributeExtractor{
				{Name: "beanName", Pattern: `@Service\s*\(\s*"([^"]+)"`},
			},
		},
	}
	for i := range rr {
		// Builtin patterns are constants; a compile failure here is a programming error.
		if err := rr[i].Compile(); err != nil {
			panic(err)
		}
	}
	return rr
}
