package session

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-printshop-assistant/internal/config"
	"github.com/tbourn/go-printshop-assistant/internal/dialogue"
	"github.com/tbourn/go-printshop-assistant/internal/repo"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newSessionDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "session_test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	db.Logger = logger.Default.LogMode(logger.Silent)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return db
}

func askingPaper() dialogue.State {
	return dialogue.State{
		Step: dialogue.StepAwaitingAttributeAnswer,
		Selection: &dialogue.Selection{
			Category:    "Business Cards",
			SubCategory: "Standard",
			Attributes: []dialogue.PendingAttribute{
				{ID: 1, Name: "Paper", Options: []string{"Matte", "Gloss"}},
				{ID: 2, Name: "Note"},
			},
			Cursor:   1,
			Selected: map[uint]string{1: "Gloss"},
		},
	}
}

// storesUnderTest returns every Store implementation, each with the session
// rows it needs for keys "s1" and "s2".
func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	_, rdb := newMiniRedis(t)

	db := newSessionDB(t)
	for _, k := range []string{"s1", "s2"} {
		if _, err := repo.ResolveSession(context.Background(), db, k, nil); err != nil {
			t.Fatalf("ResolveSession: %v", err)
		}
	}

	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(rdb, "test", time.Hour),
		"db":     NewDBStore(db),
	}
}

func TestStores_Contract(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := s.Get(ctx, "s1")
			if err != nil || !reflect.DeepEqual(got, dialogue.Initial()) {
				t.Fatalf("unseen key: %+v, %v", got, err)
			}

			for _, st := range []dialogue.State{
				askingPaper(),
				{Step: dialogue.StepAwaitingCategory},
				{Step: dialogue.StepAwaitingSubCategory, Selection: &dialogue.Selection{Category: "Banners"}},
				dialogue.Initial(),
			} {
				if err := s.Put(ctx, "s1", st); err != nil {
					t.Fatalf("Put(%q): %v", st.Step, err)
				}
				got, err := s.Get(ctx, "s1")
				if err != nil {
					t.Fatalf("Get: %v", err)
				}
				if !reflect.DeepEqual(got, st) {
					t.Fatalf("round trip:\n got %+v\nwant %+v", got, st)
				}
			}

			if got, _ := s.Get(ctx, "s2"); got.Step != dialogue.StepInit {
				t.Fatalf("keys must be independent, s2 = %+v", got)
			}

			bad := dialogue.State{Step: dialogue.StepFinalSuggestion}
			if err := s.Put(ctx, "s1", bad); !errors.Is(err, dialogue.ErrInvalidState) {
				t.Fatalf("invalid state should be rejected, got %v", err)
			}
			if got, _ := s.Get(ctx, "s1"); got.Step != dialogue.StepInit {
				t.Fatalf("rejected Put must not change the stored state")
			}
		})
	}
}

func TestStores_NoAliasing(t *testing.T) {
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			st := askingPaper()
			if err := s.Put(ctx, "s1", st); err != nil {
				t.Fatalf("Put: %v", err)
			}
			st.Selection.Selected[1] = "Matte"
			st.Selection.Attributes[0].Options[0] = "Silk"

			got, _ := s.Get(ctx, "s1")
			got.Selection.Selected[2] = "x"

			again, _ := s.Get(ctx, "s1")
			if !reflect.DeepEqual(again, askingPaper()) {
				t.Fatalf("store shares memory with callers: %+v", again.Selection)
			}
		})
	}
}

func TestRedisStore_KeysAndTTL(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	ctx := context.Background()
	s := NewRedisStore(rdb, "ps", 10*time.Minute)

	if err := s.Put(ctx, "abc", askingPaper()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !mr.Exists("ps:chat:state:abc") {
		t.Fatalf("expected prefixed key, have %v", mr.Keys())
	}
	if ttl := mr.TTL("ps:chat:state:abc"); ttl != 10*time.Minute {
		t.Fatalf("TTL = %v", ttl)
	}

	mr.FastForward(11 * time.Minute)
	if got, err := s.Get(ctx, "abc"); err != nil || got.Step != dialogue.StepInit {
		t.Fatalf("expired state should read as initial, got %+v %v", got, err)
	}

	if err := mr.Set("ps:chat:state:broken", "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Get(ctx, "broken"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("want ErrCorruptState, got %v", err)
	}
	if err := mr.Set("ps:chat:state:invalid", `{"step":"final_suggestion"}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Get(ctx, "invalid"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("snapshot failing validation should be ErrCorruptState, got %v", err)
	}

	noAnswers := `{"step":"awaiting_attribute_answer","selection":{"category":"Cards","sub_category":"Std",` +
		`"attributes":[{"id":1,"name":"Paper","options":[]}],"cursor":0}}`
	if err := mr.Set("ps:chat:state:no-answers", noAnswers); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Get(ctx, "no-answers"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("snapshot without selected answers should be ErrCorruptState, got %v", err)
	}

	mr.SetError("LOADING")
	if _, err := s.Get(ctx, "abc"); err == nil {
		t.Fatalf("server errors should propagate")
	}
}

func TestDBStore_RequiresSessionRow(t *testing.T) {
	db := newSessionDB(t)
	s := NewDBStore(db)
	if err := s.Put(context.Background(), "ghost", dialogue.Initial()); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Put(ctx, "k", dialogue.Initial()); !errors.Is(err, context.Canceled) {
		t.Fatalf("Put: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("nothing should be stored")
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr(), ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1})
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	_ = c.Close()

	if _, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "::bad::"}); err == nil {
		t.Fatalf("bad url should fail")
	}
	if _, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://127.0.0.1:1", DialTimeout: 1}); err == nil {
		t.Fatalf("unreachable server should fail")
	}
}
