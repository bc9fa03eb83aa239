package rule

import (
	"fmt"
	"sort"
	"strings"
)

var (
	// requiredRootFields must be present in every rule document.
	requiredRootFields = []string{"title", "enabled", "searchTimeFrameMinutes", "subComponents"}

	// validAggregationTypes is the closed set for queryDefinition.aggregation.aggregationType.
	validAggregationTypes = []string{"COUNT", "SUM", "AVG", "MAX", "MIN", "UNIQUE_COUNT", "NONE"}

	// validTriggerOperators is the closed set for trigger.operator.
	validTriggerOperators = []string{
		"GREATER_THAN", "LESS_THAN", "EQUALS", "NOT_EQUALS",
		"GREATER_THAN_OR_EQUALS", "LESS_THAN_OR_EQUALS",
	}

	// validSeverities is the closed set of severityThresholdTiers keys.
	validSeverities = []string{"LOW", "MEDIUM", "HIGH", "SEVERE"}

	// validCorrelationOperators is the closed set for correlations.correlationOperators.
	validCorrelationOperators = []string{"AND", "OR"}
)

// Validate checks a document against the rule schema and returns every
// finding. It is pure: the document is never mutated, and no finding is ever
// raised as a fault. Findings appear in a deterministic order: root checks,
// then output, then each subComponent in index order, then correlations,
// then the recommended-field pass.
func Validate(doc Document) *Report {
	report := &Report{}

	// Required root fields. Absence of one field never stops the others
	// from being checked.
	for _, field := range requiredRootFields {
		if _, ok := doc[field]; !ok {
			report.AddError(field, "missing required field %q", field)
		}
	}

	if v, ok := doc["title"]; ok {
		if s, isStr := v.(string); !isStr || s == "" {
			report.AddError("title", "'title' must be a non-empty string")
		}
	}

	if v, ok := doc["enabled"]; ok {
		if _, isBool := v.(bool); !isBool {
			report.AddError("enabled", "'enabled' must be a boolean")
		}
	}

	if v, ok := doc["searchTimeFrameMinutes"]; ok {
		if !isNumber(v) {
			report.AddError("searchTimeFrameMinutes", "'searchTimeFrameMinutes' must be a number")
		} else if numberValue(v) <= 0 {
			report.AddError("searchTimeFrameMinutes", "'searchTimeFrameMinutes' must be positive")
		}
	}

	if v, ok := doc["output"]; ok {
		validateOutput(v, report)
	} else {
		report.AddWarning("output", "missing 'output' field - rule will not send notifications")
	}

	if v, ok := doc["subComponents"]; ok {
		validateSubComponents(v, report)
	}

	if v, ok := doc["correlations"]; ok {
		validateCorrelations(v, report)
	}

	if v, ok := doc["tags"]; ok {
		if _, isSeq := asSequence(v); !isSeq {
			report.AddError("tags", "'tags' must be a list")
		}
	}

	// Recommended fields. Missing or empty values are advisory only.
	if s, _ := doc["description"].(string); s == "" {
		report.AddWarning("description", "missing or empty 'description'")
	}
	if tags, ok := asSequence(doc["tags"]); !ok || len(tags) == 0 {
		report.AddWarning("tags", "no tags defined - consider adding tags for organization")
	}

	// Server-owned fields are stripped on write, so their presence is
	// informational, never fatal.
	for _, field := range serverOwnedFields {
		if _, ok := doc[field]; ok {
			report.AddWarning(field, "read-only field %q will be ignored on write", field)
		}
	}

	return report
}

// validateOutput checks the notification routing block.
func validateOutput(v any, report *Report) {
	output, ok := asMapping(v)
	if !ok {
		report.AddError("output", "'output' must be an object")
		return
	}

	rv, ok := output["recipients"]
	if !ok {
		report.AddWarning("output.recipients", "no 'recipients' in output")
		return
	}

	recipients, ok := asMapping(rv)
	if !ok {
		report.AddError("output.recipients", "'recipients' must be an object")
		return
	}

	hasEmails := false
	if emails, ok := asSequence(recipients["emails"]); ok && len(emails) > 0 {
		hasEmails = true
	}
	hasEndpoints := false
	if endpoints, ok := asSequence(recipients["notificationEndpointIds"]); ok && len(endpoints) > 0 {
		hasEndpoints = true
	}
	if !hasEmails && !hasEndpoints {
		report.AddWarning("output.recipients", "no notification recipients (emails or endpoints) configured")
	}

	if ev, ok := recipients["emails"]; ok {
		emails, isSeq := asSequence(ev)
		if !isSeq {
			report.AddError("output.recipients.emails", "'emails' must be a list")
		} else {
			for _, e := range emails {
				// Format heuristic only, not full address validation.
				if s, isStr := e.(string); !isStr || !containsAt(s) {
					report.AddWarning("output.recipients.emails", "invalid email format: %v", e)
				}
			}
		}
	}

	if sv, ok := output["suppressNotificationsMinutes"]; ok {
		if !isNumber(sv) {
			report.AddError("output.suppressNotificationsMinutes", "'suppressNotificationsMinutes' must be a number")
		}
	} else {
		report.AddWarning("output.suppressNotificationsMinutes",
			"consider adding 'suppressNotificationsMinutes' to avoid alert fatigue")
	}
}

// validateSubComponents checks the query+trigger units. Indices are
// zero-based and surface in field paths as subComponents[i].
func validateSubComponents(v any, report *Report) {
	components, ok := asSequence(v)
	if !ok {
		report.AddError("subComponents", "'subComponents' must be a list")
		return
	}
	if len(components) == 0 {
		report.AddError("subComponents", "'subComponents' cannot be empty")
		return
	}

	for i, cv := range components {
		ref := fmt.Sprintf("subComponents[%d]", i)

		component, ok := asMapping(cv)
		if !ok {
			report.AddError(ref, "subComponent must be an object")
			continue
		}

		if qv, ok := component["queryDefinition"]; ok {
			validateQueryDefinition(qv, ref, report)
		} else {
			report.AddError(ref+".queryDefinition", "missing 'queryDefinition' in %s", ref)
		}

		if tv, ok := component["trigger"]; ok {
			validateTrigger(tv, ref, report)
		} else {
			report.AddError(ref+".trigger", "missing 'trigger' in %s", ref)
		}
	}
}

// validateQueryDefinition checks a subComponent's query block.
func validateQueryDefinition(v any, ref string, report *Report) {
	queryDef, ok := asMapping(v)
	if !ok {
		report.AddError(ref+".queryDefinition", "'queryDefinition' must be an object")
		return
	}

	if qv, ok := queryDef["query"]; !ok {
		report.AddError(ref+".queryDefinition.query", "missing 'query' in %s.queryDefinition", ref)
	} else if s, isStr := qv.(string); !isStr {
		report.AddError(ref+".queryDefinition.query", "'query' must be a string")
	} else if s == "" {
		report.AddWarning(ref+".queryDefinition.query", "empty query in %s.queryDefinition", ref)
	}

	if av, ok := queryDef["aggregation"]; ok {
		agg, isMap := asMapping(av)
		if !isMap {
			report.AddError(ref+".queryDefinition.aggregation", "'aggregation' must be an object")
		} else if tv, ok := agg["aggregationType"]; ok {
			if s, isStr := tv.(string); !isStr || !inSet(s, validAggregationTypes) {
				report.AddError(ref+".queryDefinition.aggregation.aggregationType",
					"invalid aggregationType %q in %s. Must be one of: %s",
					tv, ref, joinSet(validAggregationTypes))
			}
		}
	}

	if fv, ok := queryDef["filters"]; ok {
		if _, isMap := asMapping(fv); !isMap {
			report.AddError(ref+".queryDefinition.filters", "'filters' must be an object in %s", ref)
		}
	}

	if gv, ok := queryDef["groupBy"]; ok {
		if _, isSeq := asSequence(gv); !isSeq {
			report.AddError(ref+".queryDefinition.groupBy", "'groupBy' must be a list in %s", ref)
		}
	}
}

// validateTrigger checks a subComponent's alert trigger.
func validateTrigger(v any, ref string, report *Report) {
	trigger, ok := asMapping(v)
	if !ok {
		report.AddError(ref+".trigger", "'trigger' must be an object")
		return
	}

	if ov, ok := trigger["operator"]; !ok {
		report.AddError(ref+".trigger.operator", "missing 'operator' in %s.trigger", ref)
	} else if s, isStr := ov.(string); !isStr || !inSet(s, validTriggerOperators) {
		report.AddError(ref+".trigger.operator",
			"invalid operator %q in %s.trigger. Must be one of: %s",
			ov, ref, joinSet(validTriggerOperators))
	}

	tv, ok := trigger["severityThresholdTiers"]
	if !ok {
		report.AddError(ref+".trigger.severityThresholdTiers",
			"missing 'severityThresholdTiers' in %s.trigger", ref)
		return
	}

	tiers, ok := asMapping(tv)
	if !ok {
		report.AddError(ref+".trigger.severityThresholdTiers",
			"'severityThresholdTiers' must be an object in %s.trigger", ref)
		return
	}

	// Key and value checks run independently, so a single entry may
	// contribute two findings. Keys are sorted so finding order stays
	// deterministic across runs.
	keys := make([]string, 0, len(tiers))
	for k := range tiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, severity := range keys {
		threshold := tiers[severity]
		if !inSet(severity, validSeverities) {
			report.AddError(ref+".trigger.severityThresholdTiers",
				"invalid severity %q in %s.trigger. Must be one of: %s",
				severity, ref, joinSet(validSeverities))
		}
		if !isNumber(threshold) {
			report.AddError(ref+".trigger.severityThresholdTiers",
				"threshold for %s must be a number in %s.trigger", severity, ref)
		}
	}
}

// validateCorrelations checks the cross-component correlation block.
func validateCorrelations(v any, report *Report) {
	correlations, ok := asMapping(v)
	if !ok {
		report.AddError("correlations", "'correlations' must be an object")
		return
	}

	if ov, ok := correlations["correlationOperators"]; ok {
		ops, isSeq := asSequence(ov)
		if !isSeq {
			report.AddError("correlations.correlationOperators", "'correlationOperators' must be a list")
		} else {
			for _, op := range ops {
				if s, isStr := op.(string); !isStr || !inSet(s, validCorrelationOperators) {
					report.AddError("correlations.correlationOperators",
						"invalid correlation operator %q. Must be one of: %s",
						op, joinSet(validCorrelationOperators))
				}
			}
		}
	}

	// Join element shape is not checked beyond being a sequence.
	if jv, ok := correlations["joins"]; ok {
		if _, isSeq := asSequence(jv); !isSeq {
			report.AddError("correlations.joins", "'joins' must be a list")
		}
	}
}

func inSet(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func containsAt(s string) bool {
	return strings.Contains(s, "@")
}
