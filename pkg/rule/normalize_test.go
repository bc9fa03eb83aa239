package rule

import (
	"reflect"
	"testing"
)

func exportedDocument() Document {
	return Document{
		"id":                     "r-17",
		"createdAt":              "2024-03-01T00:00:00Z",
		"createdBy":              "exporter",
		"updatedAt":              "2024-04-01T00:00:00Z",
		"updatedBy":              "exporter",
		"title":                  "Suspicious Login Burst",
		"enabled":                true,
		"searchTimeFrameMinutes": 60,
		"customField":            "preserved",
		"output": Document{
			"recipients": Document{
				"emails":                  []any{"soc@example.com"},
				"notificationEndpointIds": []any{"ep-1", "ep-2"},
			},
			"suppressNotificationsMinutes": 30,
		},
		"subComponents": []any{
			Document{
				"id":              "sc-1",
				"queryDefinition": Document{"query": "status:failed"},
				"trigger": Document{
					"operator":               "GREATER_THAN",
					"severityThresholdTiers": Document{"HIGH": 10},
				},
			},
			Document{
				"id":              "sc-2",
				"queryDefinition": Document{"query": "status:locked"},
				"trigger": Document{
					"operator":               "GREATER_THAN",
					"severityThresholdTiers": Document{"LOW": 3},
				},
			},
		},
	}
}

func TestNormalize_StripsServerOwnedFields(t *testing.T) {
	cleaned := Normalize(exportedDocument())

	for _, field := range []string{"id", "createdAt", "createdBy", "updatedAt", "updatedBy"} {
		if _, ok := cleaned[field]; ok {
			t.Errorf("root field %q should be removed", field)
		}
	}

	for i, cv := range cleaned["subComponents"].([]any) {
		component := cv.(Document)
		if _, ok := component["id"]; ok {
			t.Errorf("subComponents[%d].id should be removed", i)
		}
	}

	recipients := cleaned["output"].(Document)["recipients"].(Document)
	if _, ok := recipients["notificationEndpointIds"]; ok {
		t.Error("output.recipients.notificationEndpointIds should be removed")
	}
}

func TestNormalize_PreservesOtherFields(t *testing.T) {
	cleaned := Normalize(exportedDocument())

	if cleaned["customField"] != "preserved" {
		t.Error("unknown fields must pass through unchanged")
	}
	if cleaned.Title() != "Suspicious Login Burst" {
		t.Error("title must pass through unchanged")
	}

	recipients := cleaned["output"].(Document)["recipients"].(Document)
	if !reflect.DeepEqual(recipients["emails"], []any{"soc@example.com"}) {
		t.Errorf("emails must pass through unchanged, got %v", recipients["emails"])
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	original := exportedDocument()
	Normalize(original)

	if _, ok := original["id"]; !ok {
		t.Error("input document root was mutated")
	}
	component := original["subComponents"].([]any)[0].(Document)
	if _, ok := component["id"]; !ok {
		t.Error("input subComponent was mutated")
	}
	recipients := original["output"].(Document)["recipients"].(Document)
	if _, ok := recipients["notificationEndpointIds"]; !ok {
		t.Error("input recipients were mutated")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize(exportedDocument())
	twice := Normalize(once)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Normalize is not idempotent:\nonce:  %v\ntwice: %v", once, twice)
	}
}

// Normalization must cope with documents that never had the optional
// structures in the first place.
func TestNormalize_MinimalDocument(t *testing.T) {
	doc := Document{"title": "Bare"}
	cleaned := Normalize(doc)

	if cleaned.Title() != "Bare" {
		t.Errorf("unexpected result: %v", cleaned)
	}
}

func TestDocument_CloneIsolation(t *testing.T) {
	original := exportedDocument()
	clone := original.Clone()

	clone["title"] = "changed"
	clone["output"].(Document)["recipients"].(Document)["emails"] = []any{"other@example.com"}
	clone["subComponents"].([]any)[0].(Document)["id"] = "mutated"

	if original.Title() != "Suspicious Login Burst" {
		t.Error("clone shares root storage with original")
	}
	emails := original["output"].(Document)["recipients"].(Document)["emails"].([]any)
	if emails[0] != "soc@example.com" {
		t.Error("clone shares nested mapping storage with original")
	}
	if original["subComponents"].([]any)[0].(Document)["id"] != "sc-1" {
		t.Error("clone shares subComponent storage with original")
	}
}

// Documents decoded from JSON arrive as map[string]any, not Document; every
// transform must handle both.
func TestNormalize_PlainMapNodes(t *testing.T) {
	doc := Document{
		"id":    "r-1",
		"title": "Plain",
		"output": map[string]any{
			"recipients": map[string]any{
				"notificationEndpointIds": []any{"ep-1"},
			},
		},
		"subComponents": []any{
			map[string]any{"id": "sc-1", "queryDefinition": map[string]any{"query": "q"}},
		},
	}

	cleaned := Normalize(doc)

	recipients, _ := asMapping(mustMapping(t, cleaned["output"])["recipients"])
	if _, ok := recipients["notificationEndpointIds"]; ok {
		t.Error("endpoint ids should be removed from plain-map recipients")
	}
	component, _ := asMapping(cleaned["subComponents"].([]any)[0])
	if _, ok := component["id"]; ok {
		t.Error("id should be removed from plain-map subComponent")
	}
}

func mustMapping(t *testing.T, v any) Document {
	t.Helper()
	m, ok := asMapping(v)
	if !ok {
		t.Fatalf("expected mapping, got %T", v)
	}
	return m
}
