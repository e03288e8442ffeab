package rules

import (
	"fmt"
	"sort"

	"modguard/model"
)

// Catalog is the loaded rule set plus the punishment ladder. Read-only after
// load, safe for concurrent lookups.
type Catalog struct {
	rules  map[string]model.Rule
	ladder *Ladder
}

// NewCatalog validates rule definitions and builds the catalog. Unknown
// action types and duplicate rule IDs fail with a ConfigError.
func NewCatalog(ruleList []model.Rule, ladderEntries []model.LadderEntry) (*Catalog, error) {
	ladder, err := NewLadder(ladderEntries)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Rule, len(ruleList))
	for _, r := range ruleList {
		if r.ID == "" {
			return nil, &model.ConfigError{Field: "rules", Reason: "rule with empty id"}
		}
		if _, exists := byID[r.ID]; exists {
			return nil, &model.ConfigError{Field: "rules", Reason: fmt.Sprintf("duplicate rule id %q", r.ID)}
		}
		switch r.ActionType {
		case model.ActionTypeGeneral:
			if len(r.Actions) > 0 {
				return nil, &model.ConfigError{
					Field:  "rules",
					Reason: fmt.Sprintf("rule %q is general_violation but lists actions", r.ID),
				}
			}
		case model.ActionTypeSpecific:
			if len(r.Actions) == 0 {
				return nil, &model.ConfigError{
					Field:  "rules",
					Reason: fmt.Sprintf("rule %q is specific_action but lists no actions", r.ID),
				}
			}
			for _, a := range r.Actions {
				switch a.Kind {
				case model.ActionMonitorNickname, model.ActionPermanentRemove, model.ActionRevokeAdminRole:
				default:
					return nil, &model.ConfigError{
						Field:  "rules",
						Reason: fmt.Sprintf("rule %q has unrecognized action type %q", r.ID, a.Kind),
					}
				}
				if a.Kind == model.ActionRevokeAdminRole && a.RoleID == "" {
					return nil, &model.ConfigError{
						Field:  "rules",
						Reason: fmt.Sprintf("rule %q revoke_admin_role requires role_id", r.ID),
					}
				}
			}
		default:
			return nil, &model.ConfigError{
				Field:  "rules",
				Reason: fmt.Sprintf("rule %q has unknown action_type %q", r.ID, r.ActionType),
			}
		}
		byID[r.ID] = r
	}

	return &Catalog{rules: byID, ladder: ladder}, nil
}

// Lookup returns the rule with the given id.
func (c *Catalog) Lookup(id string) (model.Rule, error) {
	r, ok := c.rules[id]
	if !ok {
		return model.Rule{}, fmt.Errorf("rule %q: %w", id, model.ErrNotFound)
	}
	return r, nil
}

// Ladder returns the shared punishment ladder.
func (c *Catalog) Ladder() *Ladder {
	return c.ladder
}

// Len returns the number of rules in the catalog.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// RuleIDs returns all rule ids in sorted order.
func (c *Catalog) RuleIDs() []string {
	ids := make([]string, 0, len(c.rules))
	for id := range c.rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
