package teams

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/taskwire/taskwire-server/internal/core"
	"github.com/taskwire/taskwire-server/internal/store"
	"github.com/taskwire/taskwire-server/internal/store/sqlite"
)

var (
	founder  = &core.Principal{ID: "founder-1", Name: "Fran", Role: "member"}
	joiner   = &core.Principal{ID: "joiner-1", Name: "Joe", Role: "member"}
	siteRoot = &core.Principal{ID: "root-1", Name: "Root", Role: "admin"}
)

func newTestService(t *testing.T) (*Service, *core.Registry) {
	t.Helper()
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := zerolog.Nop()
	reg := core.NewRegistry()
	return NewService(st, core.NewBroadcaster(reg, &logger), &logger), reg
}

func TestCreateAssignsCodeAndAdminMembership(t *testing.T) {
	svc, reg := newTestService(t)

	watcher := core.NewSession("watcher", joiner, 8)
	reg.Register(watcher)

	team, err := svc.Create(context.Background(), founder, "Platform", "infra work")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !strings.HasPrefix(team.Code, "TEAM-") {
		t.Fatalf("unexpected code format: %q", team.Code)
	}
	if team.Code != strings.ToUpper(team.Code) {
		t.Fatalf("code not stored upper case: %q", team.Code)
	}
	if team.MemberRole(founder.ID) != store.RoleAdmin {
		t.Fatal("founder is not a team admin")
	}

	// team_created goes to every connected session, joined or not.
	select {
	case ev := <-watcher.Events:
		if ev.Name != "team_created" {
			t.Fatalf("unexpected event: %s", ev.Name)
		}
	default:
		t.Fatal("team_created not announced globally")
	}
}

func TestJoinByCodeIsCaseInsensitive(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	team, err := svc.Create(ctx, founder, "Platform", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	joined, err := svc.Join(ctx, joiner, strings.ToLower(team.Code))
	if err != nil {
		t.Fatalf("join by lower-case code: %v", err)
	}
	if !joined.HasMember(joiner.ID) {
		t.Fatal("joiner not in member list")
	}
	if joined.MemberRole(joiner.ID) != store.RoleMember {
		t.Fatalf("joiner role: %q", joined.MemberRole(joiner.ID))
	}
}

func TestJoinTwiceRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	team, err := svc.Create(ctx, founder, "Platform", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Join(ctx, joiner, team.ID); err != nil {
		t.Fatalf("first join: %v", err)
	}

	_, err = svc.Join(ctx, joiner, team.ID)
	if core.CodeOf(err) != core.ErrCodeAlreadyMember {
		t.Fatalf("expected already_member, got %v", err)
	}

	reloaded, err := svc.Resolve(ctx, team.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(reloaded.Members) != 2 {
		t.Fatalf("duplicate join changed member list: %d members", len(reloaded.Members))
	}
}

func TestJoinUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Join(context.Background(), joiner, "TEAM-FFFFFF")
	if core.CodeOf(err) != core.ErrCodeNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestDeleteRequiresTeamAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	team, err := svc.Create(ctx, founder, "Platform", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Join(ctx, joiner, team.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := svc.Delete(ctx, joiner, team.ID); core.CodeOf(err) != core.ErrCodeForbidden {
		t.Fatalf("expected forbidden for plain member, got %v", err)
	}
	if err := svc.Delete(ctx, founder, team.ID); err != nil {
		t.Fatalf("team admin delete: %v", err)
	}
	if _, err := svc.Resolve(ctx, team.ID); core.CodeOf(err) != core.ErrCodeNotFound {
		t.Fatalf("team still resolvable after delete: %v", err)
	}
}

func TestDeleteByGlobalAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	team, err := svc.Create(ctx, founder, "Platform", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, siteRoot, team.ID); err != nil {
		t.Fatalf("global admin delete: %v", err)
	}
}

func TestListMine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, founder, "Alpha", ""); err != nil {
		t.Fatalf("create alpha: %v", err)
	}
	if _, err := svc.Create(ctx, joiner, "Beta", ""); err != nil {
		t.Fatalf("create beta: %v", err)
	}

	mine, err := svc.ListMine(ctx, founder)
	if err != nil {
		t.Fatalf("list mine: %v", err)
	}
	if len(mine) != 1 || mine[0].Name != "Alpha" {
		t.Fatalf("unexpected teams: %+v", mine)
	}
}
