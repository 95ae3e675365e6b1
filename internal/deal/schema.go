package deal

import "github.com/invopop/jsonschema"

// DocumentSchema reflects the JSON Schema of the deal document, published so
// partners can validate documents before submitting them.
func DocumentSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v Deal
	return reflector.Reflect(v)
}
