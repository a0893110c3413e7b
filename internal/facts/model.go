package facts

// Fact represents one structural element detected in the scanned codebase.
// File and Line are advisory only and never participate in identity or
// change classification.
type Fact struct {
	Kind       string            `json:"kind"`                 // e.g. "endpoint", "entity", "kafka_consumer"
	Identity   string            `json:"identity"`             // Stable key, unique within a snapshot
	Name       string            `json:"name"`                 // Declared construct name (class name, property key)
	Attributes map[string]string `json:"attributes,omitempty"` // Kind-specific attributes
	File       string            `json:"file,omitempty"`       // Source file, relative to scan root
	Line       int               `json:"line,omitempty"`       // Best-effort line number
}

// Fact kind constants.
const (
	KindEndpoint       = "endpoint"
	KindEntity         = "entity"
	KindKafkaConsumer  = "kafka_consumer"
	KindKafkaProducer  = "kafka_producer"
	KindFeignClient    = "feign_client"
	KindException      = "exception"
	KindConfigProperty = "config_property"
	KindService        = "service"
)

// Kinds lists all fact kinds in canonical order.
var Kinds = []string{
	KindEndpoint,
	KindEntity,
	KindKafkaConsumer,
	KindKafkaProducer,
	KindFeignClient,
	KindException,
	KindConfigProperty,
	KindService,
}

// identityPrefixes map each kind to the prefix used when deriving identities,
// e.g. "controller:OrderController#GET:/orders" or "entity:Order".
var identityPrefixes = map[string]string{
	KindEndpoint:       "controller",
	KindEntity:         "entity",
	KindKafkaConsumer:  "consumer",
	KindKafkaProducer:  "producer",
	KindFeignClient:    "feign",
	KindException:      "exception",
	KindConfigProperty: "config",
	KindService:        "service",
}

// IdentityPrefix returns the identity prefix for a fact kind, or the kind
// itself if no prefix is registered.
func IdentityPrefix(kind string) string {
	if p, ok := identityPrefixes[kind]; ok {
		return p
	}
	return kind
}

// AttributesEqual compares two attribute maps by value, both directions.
func AttributesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		w, ok := b[k]
		if !ok || v != w {
			return false
		}
	}
	return true
}

// Change categories.
const (
	CategoryAdded    = "added"
	CategoryModified = "modified"
	CategoryRemoved  = "removed"
)

// Change represents a classified difference between two snapshots for one
// identity. Before is nil when the fact was added, After is nil when it was
// removed; modified changes carry both.
type Change struct {
	Identity string `json:"identity"`
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Before   *Fact  `json:"before,omitempty"`
	After    *Fact  `json:"after,omitempty"`
}

// Warning codes.
const (
	WarnAttributeMissing  = "attribute_missing"
	WarnNameUnresolved    = "name_unresolved"
	WarnIdentityCollision = "identity_collision"
	WarnRootMismatch      = "root_mismatch"
	WarnCountSkew         = "count_skew"
)

// Warning is a non-fatal diagnostic collected during extraction or diffing.
// Warnings never abort a run; they are returned alongside the result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// Meta contains metadata about a snapshot extraction run.
type Meta struct {
	RootPath    string `json:"root_path"`
	ExtractedAt string `json:"extracted_at"`
	Duration    string `json:"duration,omitempty"`
	RuleCount   int    `json:"rule_count,omitempty"`
	FactCount   int    `json:"fact_count"`
}
