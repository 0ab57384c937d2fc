package intent

// Merge folds a freshly extracted intent into the session's running
// intent. Per field, the new value wins only when its confidence is
// strictly higher than the old one and the new value is not unknown; ties
// favor the existing value. Boolean flags are monotonic OR: once true
// they stay true for the session.
func Merge(old, new Intent) Intent {
	out := old

	if new.Purpose != PurposeUnknown && new.Confidence.Purpose > old.Confidence.Purpose {
		out.Purpose = new.Purpose
		out.Confidence.Purpose = new.Confidence.Purpose
	}
	if new.Platform != PlatformUnknown && new.Confidence.Platform > old.Confidence.Platform {
		out.Platform = new.Platform
		out.Confidence.Platform = new.Confidence.Platform
	}
	if new.Style != StyleUnknown && new.Confidence.Style > old.Confidence.Style {
		out.Style = new.Style
		out.Confidence.Style = new.Confidence.Style
	}
	if new.MediaType != MediaUnknown && new.Confidence.MediaType > old.Confidence.MediaType {
		out.MediaType = new.MediaType
		out.Confidence.MediaType = new.Confidence.MediaType
	}
	if new.BudgetSensitivity != BudgetUnknown && new.Confidence.BudgetSensitivity > old.Confidence.BudgetSensitivity {
		out.BudgetSensitivity = new.BudgetSensitivity
		out.Confidence.BudgetSensitivity = new.Confidence.BudgetSensitivity
	}

	out.HasScript = old.HasScript || new.HasScript
	out.HasVisuals = old.HasVisuals || new.HasVisuals

	out.Overall = (out.Confidence.Purpose + out.Confidence.Platform + out.Confidence.Style +
		out.Confidence.MediaType + out.Confidence.BudgetSensitivity) / 5

	return out
}
