package conductor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaFrom_SimpleTypes(t *testing.T) {
	type Args struct {
		Name    string  `json:"name"`
		Age     int     `json:"age"`
		Score   float64 `json:"score"`
		Active  bool    `json:"active"`
		Count   int64   `json:"count"`
		Rating  float32 `json:"rating"`
		SmallID uint8   `json:"small_id"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	assert.Equal(t, "object", result["type"])
	props := result["properties"].(map[string]any)

	assert.Equal(t, "string", props["name"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["age"].(map[string]any)["type"])
	assert.Equal(t, "number", props["score"].(map[string]any)["type"])
	assert.Equal(t, "boolean", props["active"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["count"].(map[string]any)["type"])
	assert.Equal(t, "number", props["rating"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["small_id"].(map[string]any)["type"])
}

func TestSchemaFrom_DescTag(t *testing.T) {
	type Args struct {
		Query string `json:"query" desc:"The search query"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	assert.Equal(t, "The search query", props["query"].(map[string]any)["description"])
}

func TestSchemaFrom_RequiredTag(t *testing.T) {
	type Args struct {
		Location string `json:"location" required:"true"`
		Unit     string `json:"unit"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	required := result["required"].([]any)
	assert.Len(t, required, 1)
	assert.Equal(t, "location", required[0])
}

func TestSchemaFrom_EnumTag(t *testing.T) {
	type Args struct {
		Unit string `json:"unit" enum:"celsius,fahrenheit"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	enum := props["unit"].(map[string]any)["enum"].([]any)
	assert.Len(t, enum, 2)
	assert.Contains(t, enum, "celsius")
	assert.Contains(t, enum, "fahrenheit")
}

func TestSchemaFrom_FluentOverridesAndTags(t *testing.T) {
	type WeatherArgs struct {
		Location string `json:"location" desc:"The city name" required:"true"`
		Unit     string `json:"unit"`
	}

	schema := SchemaFrom[WeatherArgs]().
		Desc("unit", "Temperature unit").
		Enum("unit", "celsius", "fahrenheit").
		Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)

	location := props["location"].(map[string]any)
	assert.Equal(t, "string", location["type"])
	assert.Equal(t, "The city name", location["description"])

	unit := props["unit"].(map[string]any)
	assert.Equal(t, "Temperature unit", unit["description"])
	enum := unit["enum"].([]any)
	assert.Contains(t, enum, "celsius")
	assert.Contains(t, enum, "fahrenheit")

	required := result["required"].([]any)
	assert.Contains(t, required, "location")
}

func TestSchemaFrom_Array(t *testing.T) {
	type Args struct {
		Tags []string `json:"tags"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])

	items := tags["items"].(map[string]any)
	assert.Equal(t, "string", items["type"])
}

func TestSchemaFrom_NestedStruct(t *testing.T) {
	type Address struct {
		Street string `json:"street"`
		City   string `json:"city" required:"true"`
	}

	type Args struct {
		Name    string  `json:"name"`
		Address Address `json:"address"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)

	assert.Equal(t, "string", props["name"].(map[string]any)["type"])

	addr := props["address"].(map[string]any)
	assert.Equal(t, "object", addr["type"])

	addrProps := addr["properties"].(map[string]any)
	assert.Equal(t, "string", addrProps["street"].(map[string]any)["type"])
	assert.Equal(t, "string", addrProps["city"].(map[string]any)["type"])

	addrRequired := addr["required"].([]any)
	assert.Contains(t, addrRequired, "city")
}

func TestSchemaFrom_EmptyStruct(t *testing.T) {
	type Args struct{}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	assert.Equal(t, "object", result["type"])
	props := result["properties"].(map[string]any)
	assert.Empty(t, props)
}

func TestSchemaFrom_PointerFields(t *testing.T) {
	type Args struct {
		Name *string `json:"name"`
		Age  *int    `json:"age"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	assert.Equal(t, "string", props["name"].(map[string]any)["type"])
	assert.Equal(t, "integer", props["age"].(map[string]any)["type"])
}

func TestSchemaFrom_JsonTagOmit(t *testing.T) {
	type Args struct {
		Public  string `json:"public"`
		Private string `json:"-"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	assert.Contains(t, props, "public")
	assert.NotContains(t, props, "Private")
	assert.NotContains(t, props, "-")
}

func TestSchemaFrom_UnexportedFields(t *testing.T) {
	type Args struct {
		Public  string `json:"public"`
		private string //nolint:unused
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	assert.Len(t, props, 1)
	assert.Contains(t, props, "public")
}

func TestSchemaFrom_ArrayOfStructs(t *testing.T) {
	type Item struct {
		Name  string `json:"name"`
		Price int    `json:"price"`
	}

	type Args struct {
		Items []Item `json:"items"`
	}

	schema := SchemaFrom[Args]().Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	items := props["items"].(map[string]any)
	assert.Equal(t, "array", items["type"])

	itemSchema := items["items"].(map[string]any)
	assert.Equal(t, "object", itemSchema["type"])

	itemProps := itemSchema["properties"].(map[string]any)
	assert.Equal(t, "string", itemProps["name"].(map[string]any)["type"])
	assert.Equal(t, "integer", itemProps["price"].(map[string]any)["type"])
}

func TestSchemaFrom_DuplicateRequired(t *testing.T) {
	type Args struct {
		Name string `json:"name" required:"true"`
	}

	schema := SchemaFrom[Args]().
		Required("name").
		Build()

	var result map[string]any
	err := json.Unmarshal(schema, &result)
	require.NoError(t, err)

	required := result["required"].([]any)
	assert.Len(t, required, 1)
}

func TestSchemaFor_Struct(t *testing.T) {
	type Args struct {
		Text string `json:"text" desc:"Text to translate" required:"true"`
	}

	schema, err := SchemaFor[Args]()
	require.NoError(t, err)

	var result map[string]any
	err = json.Unmarshal(schema, &result)
	require.NoError(t, err)

	props := result["properties"].(map[string]any)
	assert.Equal(t, "Text to translate", props["text"].(map[string]any)["description"])
	assert.Contains(t, result["required"].([]any), "text")
}

func TestSchemaFor_NonStruct(t *testing.T) {
	_, err := SchemaFor[string]()
	assert.Error(t, err)

	_, err = SchemaFor[int]()
	assert.Error(t, err)

	_, err = SchemaFor[[]string]()
	assert.Error(t, err)
}

func TestMustSchemaFor_PanicsOnNonStruct(t *testing.T) {
	assert.Panics(t, func() {
		MustSchemaFor[string]()
	})

	assert.NotPanics(t, func() {
		type Args struct {
			Name string `json:"name"`
		}
		MustSchemaFor[Args]()
	})
}
