package review

// Viewer identifies who is reading annotated content. The zero value is an
// anonymous viewer.
type Viewer struct {
	ID            string
	IsAdmin       bool
	Authenticated bool
}

// CanEdit reports whether the viewer may edit content directly.
func (v Viewer) CanEdit() bool {
	return v.Authenticated && v.IsAdmin
}

// VisibleComments filters already-fetched comments for the viewer.
// Admins see everything, authenticated users see unresolved comments,
// anonymous viewers see none.
func VisibleComments(viewer Viewer, comments []Comment) []Comment {
	if !viewer.Authenticated {
		return []Comment{}
	}
	if viewer.IsAdmin {
		return comments
	}
	visible := make([]Comment, 0, len(comments))
	for _, comment := range comments {
		if !comment.IsResolved {
			visible = append(visible, comment)
		}
	}
	return visible
}

// VisibleSuggestions filters already-fetched suggestions for the viewer.
// Admins see every status, authenticated users only pending, anonymous none.
func VisibleSuggestions(viewer Viewer, suggestions []EditSuggestion) []EditSuggestion {
	if !viewer.Authenticated {
		return []EditSuggestion{}
	}
	if viewer.IsAdmin {
		return suggestions
	}
	visible := make([]EditSuggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		if suggestion.Status == SuggestionStatusPending {
			visible = append(visible, suggestion)
		}
	}
	return visible
}
