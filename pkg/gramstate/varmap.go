package gramstate

// VarMapValue is the value a name can resolve to in a VarMap: a RuleId
// (invoke this rule), a *RuleClosure (reparse a stored expression in its
// captured context), or an opaque captured value (parsed AST, rule-valued
// grammar spliced by AtAdapt, etc).
type VarMapValue struct {
	RuleID  RuleID
	IsRule  bool
	Closure *RuleClosure
	Value   any // set when neither IsRule nor Closure is set
}

// RuleIDValue wraps a RuleId as a VarMapValue.
func RuleIDValue(id RuleID) VarMapValue {
	return VarMapValue{RuleID: id, IsRule: true}
}

// ClosureValue wraps a RuleClosure as a VarMapValue.
func ClosureValue(c *RuleClosure) VarMapValue {
	return VarMapValue{Closure: c}
}

// OpaqueValue wraps an arbitrary captured value as a VarMapValue.
func OpaqueValue(v any) VarMapValue {
	return VarMapValue{Value: v}
}

// VarMap is an immutable persistent map from name to VarMapValue, grounded
// on original_source/prism-parser/src/parser/var_map.rs: Insert returns a
// new VarMap sharing structure (here: a parent-pointer chain) with the old
// one, rather than copying.
type VarMap struct {
	name   string
	value  VarMapValue
	parent *VarMap
}

// Empty is the empty VarMap.
var Empty = (*VarMap)(nil)

// Insert returns a new VarMap with name bound to value, shadowing any
// existing binding of name without mutating the receiver.
func (m *VarMap) Insert(name string, value VarMapValue) *VarMap {
	return &VarMap{name: name, value: value, parent: m}
}

// Get looks up name, walking from the most recently inserted binding
// backward (shadowing).
func (m *VarMap) Get(name string) (VarMapValue, bool) {
	for n := m; n != nil; n = n.parent {
		if n.name == name {
			return n.value, true
		}
	}
	return VarMapValue{}, false
}

// Names returns all currently visible names (most recent first), in the
// shape diag.UnknownName takes as its candidate list.
func (m *VarMap) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for n := m; n != nil; n = n.parent {
		if !seen[n.name] {
			seen[n.name] = true
			names = append(names, n.name)
		}
	}
	return names
}
