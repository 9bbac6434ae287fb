package review

import "testing"

func TestVisibleCommentsByViewer(testContext *testing.T) {
	comments := []Comment{
		{ID: "open", IsResolved: false},
		{ID: "settled", IsResolved: true},
	}

	if got := VisibleComments(Viewer{}, comments); len(got) != 0 {
		testContext.Fatalf("expected anonymous viewer to see no comments, got %d", len(got))
	}

	member := VisibleComments(Viewer{ID: "member", Authenticated: true}, comments)
	if len(member) != 1 || member[0].ID != "open" {
		testContext.Fatalf("expected member to see only unresolved comments, got %+v", member)
	}

	admin := VisibleComments(Viewer{ID: "admin", IsAdmin: true, Authenticated: true}, comments)
	if len(admin) != 2 {
		testContext.Fatalf("expected admin to see all comments, got %d", len(admin))
	}
}

func TestVisibleSuggestionsByViewer(testContext *testing.T) {
	suggestions := []EditSuggestion{
		{ID: "pending", Status: SuggestionStatusPending},
		{ID: "accepted", Status: SuggestionStatusAccepted},
		{ID: "rejected", Status: SuggestionStatusRejected},
	}

	if got := VisibleSuggestions(Viewer{}, suggestions); len(got) != 0 {
		testContext.Fatalf("expected anonymous viewer to see no suggestions, got %d", len(got))
	}

	member := VisibleSuggestions(Viewer{ID: "member", Authenticated: true}, suggestions)
	if len(member) != 1 || member[0].ID != "pending" {
		testContext.Fatalf("expected member to see only pending suggestions, got %+v", member)
	}

	admin := VisibleSuggestions(Viewer{ID: "admin", IsAdmin: true, Authenticated: true}, suggestions)
	if len(admin) != 3 {
		testContext.Fatalf("expected admin to see every status, got %d", len(admin))
	}
}

func TestCanEditRequiresAuthenticatedAdmin(testContext *testing.T) {
	testCases := []struct {
		name   string
		viewer Viewer
		want   bool
	}{
		{name: "anonymous", viewer: Viewer{}, want: false},
		{name: "member", viewer: Viewer{ID: "m", Authenticated: true}, want: false},
		{name: "admin", viewer: Viewer{ID: "a", IsAdmin: true, Authenticated: true}, want: true},
		{name: "unauthenticated admin flag", viewer: Viewer{ID: "a", IsAdmin: true}, want: false},
	}

	for _, testCase := range testCases {
		if got := testCase.viewer.CanEdit(); got != testCase.want {
			testContext.Fatalf("%s: expected CanEdit=%v, got %v", testCase.name, testCase.want, got)
		}
	}
}
