package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/tbourn/go-wellbeing-backend/internal/domain"
)

func newOnboarding(t *testing.T, m *fakeMessenger, profiles ProfileSource) (*OnboardingService, *IdentityService) {
	t.Helper()
	ids := NewIdentityService(newDB(t), store{}, profiles)
	return &OnboardingService{
		Registry: ids,
		Sender:   &Dispatcher{Messenger: m},
		Links: LinkBuilder{
			FormBaseURL: "https://forms.example/view",
			FormEntryID: "entry.9",
			AppBaseURL:  "https://app.example",
		},
	}, ids
}

func TestHandleEvents_FollowRepliesWithLinks(t *testing.T) {
	m := &fakeMessenger{}
	svc, ids := newOnboarding(t, m, fakeProfiles{name: "Taro"})

	rep := svc.HandleEvents(context.Background(), []ChatEvent{
		{Type: EventFollow, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt-1"},
	})
	if rep != (OnboardingReport{Handled: 1, Sent: 1}) {
		t.Fatalf("unexpected report: %+v", rep)
	}

	u, _, err := ids.ResolveOrCreate(context.Background(), "U1", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	calls := m.Calls()
	if len(calls) != 1 || calls[0].Kind != "reply" || calls[0].To != "rt-1" {
		t.Fatalf("expected one reply, got %+v", calls)
	}
	if !strings.Contains(calls[0].Text, "entry.9="+u.ExternalToken) || !strings.Contains(calls[0].Text, "/user/"+u.ExternalToken) {
		t.Fatalf("message lacks personalised links:\n%s", calls[0].Text)
	}
	if !strings.HasPrefix(calls[0].Text, "Taro さん") {
		t.Fatalf("message should greet by profile name:\n%s", calls[0].Text)
	}
}

func TestHandleEvents_MessageEventPushesSameToken(t *testing.T) {
	m := &fakeMessenger{}
	svc, _ := newOnboarding(t, m, nil)
	ctx := context.Background()

	svc.HandleEvents(ctx, []ChatEvent{{Type: EventFollow, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt"}})
	svc.HandleEvents(ctx, []ChatEvent{{Type: EventMessage, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt2"}})

	calls := m.Calls()
	if len(calls) != 2 || calls[1].Kind != "push" || calls[1].To != "U1" {
		t.Fatalf("second contact should push to the user, got %+v", calls)
	}
	if calls[0].Text != calls[1].Text {
		t.Fatalf("re-sent links differ:\n%s\n---\n%s", calls[0].Text, calls[1].Text)
	}
}

func TestHandleEvents_SkipsNonUserSources(t *testing.T) {
	m := &fakeMessenger{}
	svc, ids := newOnboarding(t, m, nil)

	rep := svc.HandleEvents(context.Background(), []ChatEvent{
		{Type: EventFollow, SourceType: SourceGroup, UserID: "U1"},
		{Type: EventMessage, SourceType: SourceRoom, UserID: "U2"},
		{Type: EventFollow, SourceType: SourceUser, UserID: " "},
		{Type: EventUnfollow, SourceType: SourceUser, UserID: "U3"},
		{Type: "postback", SourceType: SourceUser, UserID: "U4"},
	})
	if rep != (OnboardingReport{Skipped: 5}) {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(m.Calls()) != 0 {
		t.Fatalf("no dispatch expected")
	}
	if n := countRows(t, ids.DB, &domain.User{}); n != 0 {
		t.Fatalf("no user expected, got %d", n)
	}
}

func TestHandleEvents_DispatchFailureIsSwallowed(t *testing.T) {
	m := &fakeMessenger{errs: []error{statusErr(400)}}
	svc, ids := newOnboarding(t, m, nil)

	rep := svc.HandleEvents(context.Background(), []ChatEvent{
		{Type: EventFollow, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt"},
	})
	if rep.Failed != 1 || rep.Sent != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	// The identity is kept even though the message failed.
	if n := countRows(t, ids.DB, &domain.User{}); n != 1 {
		t.Fatalf("expected 1 user, got %d", n)
	}
}

func TestHandleEvents_RefreshesPlaceholderName(t *testing.T) {
	m := &fakeMessenger{}
	svc, ids := newOnboarding(t, m, nil)
	ctx := context.Background()

	svc.HandleEvents(ctx, []ChatEvent{{Type: EventFollow, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt"}})

	ids.Profiles = fakeProfiles{name: "Hanako"}
	svc.HandleEvents(ctx, []ChatEvent{{Type: EventMessage, SourceType: SourceUser, UserID: "U1"}})

	u, err := ids.Repo.GetUserByPlatformID(ctx, ids.DB, "U1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if u.DisplayName != "Hanako" {
		t.Fatalf("display name = %q; want Hanako", u.DisplayName)
	}
	if calls := m.Calls(); !strings.HasPrefix(calls[1].Text, "Hanako さん") {
		t.Fatalf("second message should use the refreshed name:\n%s", calls[1].Text)
	}
}

func TestHandleEvents_SimultaneousFirstContact(t *testing.T) {
	m := &fakeMessenger{}
	svc, ids := newOnboarding(t, m, nil)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.HandleEvents(context.Background(), []ChatEvent{
				{Type: EventFollow, SourceType: SourceUser, UserID: "U1", ReplyToken: "rt"},
			})
		}()
	}
	wg.Wait()

	if n := countRows(t, ids.DB, &domain.User{}); n != 1 {
		t.Fatalf("expected one user row, got %d", n)
	}
	// Messages are not deduplicated across simultaneous onboarding attempts.
	calls := m.Calls()
	if len(calls) != 2 || calls[0].Text != calls[1].Text {
		t.Fatalf("expected two identical messages, got %+v", calls)
	}
}
