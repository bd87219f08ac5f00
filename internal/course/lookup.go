package course

// FindModule returns a pointer to the module with the given id, or nil.
func (c *Course) FindModule(id string) *Module {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i]
		}
	}
	return nil
}

// FindActivity returns a pointer to the activity with the given id, or nil.
func (m *Module) FindActivity(id string) *Activity {
	for i := range m.Activities {
		if m.Activities[i].ID == id {
			return &m.Activities[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the course so callers can read it without
// sharing slices with the owner.
func (c *Course) Clone() *Course {
	if c == nil {
		return nil
	}
	out := *c
	out.Modules = make([]Module, len(c.Modules))
	for i, m := range c.Modules {
		out.Modules[i] = m.Clone()
	}
	if c.Blueprint != nil {
		bp := *c.Blueprint
		bp.StoryArc = append([]string(nil), c.Blueprint.StoryArc...)
		bp.GrowthPillars = append([]string(nil), c.Blueprint.GrowthPillars...)
		out.Blueprint = &bp
	}
	out.History = append([]HistoryEntry(nil), c.History...)
	return &out
}

// Clone returns a deep copy of the module.
func (m Module) Clone() Module {
	out := m
	out.Activities = make([]Activity, len(m.Activities))
	for i, a := range m.Activities {
		a.History = append([]Attempt{}, a.History...)
		a.Choices = append([]string(nil), a.Choices...)
		a.Keywords = append([]string(nil), a.Keywords...)
		out.Activities[i] = a
	}
	return out
}
