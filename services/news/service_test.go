package news

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"seatrail/pkg/apperr"
	"seatrail/services/marketplace"
	"seatrail/services/marketplace/markettest"
	"seatrail/services/marketplace/memstore"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	svc, err := NewService(store, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return svc, store
}

func TestCreatePostValidation(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)

	tests := []struct {
		name string
		in   PostInput
	}{
		{"blank title", PostInput{Title: "  ", Body: "text"}},
		{"long title", PostInput{Title: strings.Repeat("t", maxTitleLength+1), Body: "text"}},
		{"blank body", PostInput{Title: "Hello", Body: " "}},
		{"long body", PostInput{Title: "Hello", Body: strings.Repeat("b", maxBodyLength+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePost(context.Background(), admin.ID, tt.in)
			if !apperr.Is(err, apperr.KindInvalid) {
				t.Fatalf("CreatePost() error = %v, want invalid", err)
			}
		})
	}
	if n := store.Count(marketplace.TableNewsPosts); n != 0 {
		t.Fatalf("news posts = %d, want 0", n)
	}
}

func TestCreatePostSummary(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)

	body := strings.Repeat("é", summaryLength+10)
	post, err := svc.CreatePost(context.Background(), admin.ID, PostInput{Title: " Hello ", Body: body, IsPublished: true})
	if err != nil {
		t.Fatal(err)
	}
	if post.Title != "Hello" {
		t.Fatalf("Title = %q, want trimmed", post.Title)
	}
	if want := strings.Repeat("é", summaryLength) + "..."; post.Summary != want {
		t.Fatalf("Summary has %d runes, want %d", len([]rune(post.Summary)), len([]rune(want)))
	}
}

func TestListPublishedHidesDrafts(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	reader := markettest.User(t, store, marketplace.RoleUser)
	older := markettest.NewsPost(t, store, admin, true)
	draft := markettest.NewsPost(t, store, admin, false)
	newer := markettest.NewsPost(t, store, admin, true)
	markettest.NewsLike(t, store, older, reader)
	markettest.NewsLike(t, store, older, admin)
	markettest.NewsComment(t, store, older, reader, "nice")
	ctx := context.Background()

	posts, err := svc.ListPublished(ctx, reader.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 || posts[0].ID != newer.ID || posts[1].ID != older.ID {
		t.Fatalf("ListPublished() = %+v, want newer then older", posts)
	}
	if posts[1].LikeCount != 2 || posts[1].CommentCount != 1 || !posts[1].Liked {
		t.Fatalf("older post = %+v", posts[1])
	}
	if posts[0].Liked {
		t.Fatalf("newer post liked without a like")
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("ListAll() = %d posts, want 3", len(all))
	}

	if _, err := svc.Get(ctx, draft.ID, reader.ID, false); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Get(draft) error = %v, want not found", err)
	}
	if _, err := svc.Get(ctx, draft.ID, admin.ID, true); err != nil {
		t.Fatalf("Get(draft, drafts) error = %v", err)
	}
}

func TestLike(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	reader := markettest.User(t, store, marketplace.RoleUser)
	post := markettest.NewsPost(t, store, admin, true)
	draft := markettest.NewsPost(t, store, admin, false)
	ctx := context.Background()

	if err := svc.Like(ctx, reader.ID, post.ID); err != nil {
		t.Fatalf("Like() error = %v", err)
	}
	if err := svc.Like(ctx, reader.ID, post.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second Like() error = %v, want conflict", err)
	}
	if err := svc.Like(ctx, reader.ID, draft.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("Like(draft) error = %v, want not found", err)
	}
	if n := store.Count(marketplace.TableNewsLikes); n != 1 {
		t.Fatalf("likes = %d, want 1", n)
	}

	if err := svc.Unlike(ctx, reader.ID, post.ID); err != nil {
		t.Fatalf("Unlike() error = %v", err)
	}
	if err := svc.Unlike(ctx, reader.ID, post.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second Unlike() error = %v, want not found", err)
	}
	if n := store.Count(marketplace.TableNewsLikes); n != 0 {
		t.Fatalf("likes = %d, want 0", n)
	}
}

func TestBannedUserCannotInteract(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	banned := markettest.User(t, store, marketplace.RoleUser)
	banned.IsActive = false
	if err := store.InTx(context.Background(), func(tx marketplace.Tx) error {
		return tx.UpdateUser(context.Background(), &banned)
	}); err != nil {
		t.Fatal(err)
	}
	post := markettest.NewsPost(t, store, admin, true)
	ctx := context.Background()

	if err := svc.Like(ctx, banned.ID, post.ID); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("Like() error = %v, want policy", err)
	}
	if _, err := svc.AddComment(ctx, banned.ID, post.ID, "hi"); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("AddComment() error = %v, want policy", err)
	}
}

func TestComments(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	author := markettest.User(t, store, marketplace.RoleUser)
	other := markettest.User(t, store, marketplace.RoleUser)
	post := markettest.NewsPost(t, store, admin, true)
	draft := markettest.NewsPost(t, store, admin, false)
	ctx := context.Background()

	first, err := svc.AddComment(ctx, author.ID, post.ID, "  first  ")
	if err != nil {
		t.Fatal(err)
	}
	if first.Text != "first" {
		t.Fatalf("Text = %q, want trimmed", first.Text)
	}
	second, err := svc.AddComment(ctx, other.ID, post.ID, "second")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		userID uuid.UUID
		postID uuid.UUID
		text   string
		want   apperr.Kind
	}{
		{"empty", author.ID, post.ID, " ", apperr.KindInvalid},
		{"too long", author.ID, post.ID, strings.Repeat("c", maxCommentLength+1), apperr.KindInvalid},
		{"draft", author.ID, draft.ID, "hi", apperr.KindNotFound},
		{"missing post", author.ID, uuid.New(), "hi", apperr.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddComment(ctx, tt.userID, tt.postID, tt.text); !apperr.Is(err, tt.want) {
				t.Fatalf("AddComment() error = %v, want %v", err, tt.want)
			}
		})
	}

	comments, err := svc.ListComments(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 || comments[0].ID != first.ID || comments[1].ID != second.ID {
		t.Fatalf("ListComments() = %+v, want oldest first", comments)
	}

	if err := svc.DeleteComment(ctx, other.ID, post.ID, first.ID); !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("DeleteComment(other) error = %v, want policy", err)
	}
	if err := svc.DeleteComment(ctx, author.ID, draft.ID, first.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("DeleteComment(wrong post) error = %v, want not found", err)
	}
	if err := svc.DeleteComment(ctx, author.ID, post.ID, first.ID); err != nil {
		t.Fatalf("DeleteComment(author) error = %v", err)
	}
	if err := svc.DeleteComment(ctx, admin.ID, post.ID, second.ID); err != nil {
		t.Fatalf("DeleteComment(admin) error = %v", err)
	}
	if n := store.Count(marketplace.TableNewsComments); n != 0 {
		t.Fatalf("comments = %d, want 0", n)
	}
}

func TestUpdateAndDeletePost(t *testing.T) {
	svc, store := newService(t)
	admin := markettest.User(t, store, marketplace.RoleAdmin)
	reader := markettest.User(t, store, marketplace.RoleUser)
	post := markettest.NewsPost(t, store, admin, false)
	ctx := context.Background()

	published := true
	title := "Now open"
	got, err := svc.UpdatePost(ctx, post.ID, PostUpdate{Title: &title, IsPublished: &published})
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != title || !got.IsPublished || got.Body != post.Body {
		t.Fatalf("UpdatePost() = %+v", got)
	}

	blank := ""
	if _, err := svc.UpdatePost(ctx, post.ID, PostUpdate{Title: &blank}); !apperr.Is(err, apperr.KindInvalid) {
		t.Fatalf("UpdatePost(blank) error = %v, want invalid", err)
	}
	if _, err := svc.UpdatePost(ctx, uuid.New(), PostUpdate{Title: &title}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("UpdatePost(missing) error = %v, want not found", err)
	}

	markettest.NewsLike(t, store, post, reader)
	markettest.NewsComment(t, store, post, reader, "hi")
	if err := svc.DeletePost(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{marketplace.TableNewsPosts, marketplace.TableNewsLikes, marketplace.TableNewsComments} {
		if n := store.Count(table); n != 0 {
			t.Fatalf("%s = %d, want 0", table, n)
		}
	}
	if err := svc.DeletePost(ctx, post.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("second DeletePost() error = %v, want not found", err)
	}
}
