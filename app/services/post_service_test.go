package services

import (
	"context"
	"math"
	"strings"
	"testing"

	"forumhub/app/events"
	"forumhub/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "alice")

	t.Run("valid post", func(t *testing.T) {
		post, err := env.posts.CreatePost(author.ID, "  Hello  ", "World")
		require.NoError(t, err)
		assert.NotZero(t, post.ID)
		assert.Equal(t, "Hello", post.Title)
		assert.Equal(t, "alice", post.AuthorName)
		assert.False(t, post.CreatedAt.IsZero())
		assert.Equal(t, []string{events.PostCreated}, env.hub.types())
	})

	tests := []struct {
		name    string
		title   string
		content string
		msg     string
	}{
		{"empty title", "", "content", "title is required"},
		{"blank title", "   ", "content", "title is required"},
		{"empty content", "title", "", "content is required"},
		{"title too long", strings.Repeat("t", 201), "content", "title is too long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := env.store.Posts.List(0, 0)
			require.NoError(t, err)

			_, err = env.posts.CreatePost(author.ID, tt.title, tt.content)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.msg)

			after, err := env.store.Posts.List(0, 0)
			require.NoError(t, err)
			assert.Len(t, after, len(before), "invalid post must not be stored")
		})
	}

	t.Run("unknown author", func(t *testing.T) {
		_, err := env.posts.CreatePost("ghost", "title", "content")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestGetPostWithReplies(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	ctx := context.Background()

	post, err := env.posts.CreatePost(alice.ID, "Thread", "content")
	require.NoError(t, err)
	first, err := env.replies.CreateReply(ctx, post.ID, 0, bob.ID, "first")
	require.NoError(t, err)
	_, err = env.replies.CreateReply(ctx, post.ID, first.ID, alice.ID, "nested")
	require.NoError(t, err)
	second, err := env.replies.CreateReply(ctx, post.ID, 0, bob.ID, "second")
	require.NoError(t, err)
	env.replies.Wait()

	got, err := env.posts.GetPost(post.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.ReplyCount)
	require.Len(t, got.Replies, 2)
	assert.Equal(t, second.ID, got.Replies[0].ID, "newest reply first")
	require.Len(t, got.Replies[1].Replies, 1)
	assert.Equal(t, "nested", got.Replies[1].Replies[0].Content)

	_, err = env.posts.GetPost(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	var ids []int
	for i, title := range []string{"Go news", "Cooking", "Go tips", "Travel"} {
		author := alice
		if i%2 == 1 {
			author = bob
		}
		p, err := env.posts.CreatePost(author.ID, title, "body")
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	_, err := env.replies.CreateReply(context.Background(), ids[0], 0, bob.ID, "reply")
	require.NoError(t, err)
	env.replies.Wait()

	t.Run("first page newest first", func(t *testing.T) {
		posts, err := env.posts.ListPosts(1, 2, "")
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[3], posts[0].ID)
		assert.Equal(t, ids[2], posts[1].ID)
	})

	t.Run("second page with reply count", func(t *testing.T) {
		posts, err := env.posts.ListPosts(2, 2, "")
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[0], posts[1].ID)
		assert.Equal(t, 1, posts[1].ReplyCount)
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		posts, err := env.posts.ListPosts(10, 2, "")
		require.NoError(t, err)
		assert.NotNil(t, posts)
		assert.Empty(t, posts)
	})

	t.Run("huge page is empty", func(t *testing.T) {
		posts, err := env.posts.ListPosts(math.MaxInt/10, 10, "")
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("bad paging falls back to defaults", func(t *testing.T) {
		posts, err := env.posts.ListPosts(0, 0, "")
		require.NoError(t, err)
		assert.Len(t, posts, 4)
	})

	t.Run("search", func(t *testing.T) {
		posts, err := env.posts.ListPosts(1, 10, "go")
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[2], posts[0].ID)
	})

	t.Run("by author", func(t *testing.T) {
		posts, err := env.posts.ListUserPosts(bob.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, ids[3], posts[0].ID)

		_, err = env.posts.ListUserPosts("ghost", 1, 10)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdatePost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	post, err := env.posts.CreatePost(alice.ID, "Title", "content")
	require.NoError(t, err)
	_, err = env.posts.LikePost(bob.ID, post.ID)
	require.NoError(t, err)
	_, err = env.replies.CreateReply(context.Background(), post.ID, 0, bob.ID, "reply")
	require.NoError(t, err)
	env.replies.Wait()

	t.Run("author edits", func(t *testing.T) {
		updated, err := env.posts.UpdatePost(alice.ID, post.ID, "New title", "new content")
		require.NoError(t, err)
		assert.Equal(t, "New title", updated.Title)
		assert.Equal(t, post.CreatedAt, updated.CreatedAt)
		assert.Equal(t, alice.ID, updated.AuthorID)
		assert.Equal(t, 1, updated.LikeCount)
		assert.Equal(t, 1, updated.ReplyCount)

		last := env.hub.last()
		assert.Equal(t, events.PostUpdated, last.Type)
		payload, ok := last.Payload.(*models.Post)
		require.True(t, ok)
		assert.Equal(t, 1, payload.ReplyCount)
		assert.True(t, updated.UpdatedAt.After(post.CreatedAt) || updated.UpdatedAt.Equal(post.CreatedAt))
	})

	t.Run("others cannot edit", func(t *testing.T) {
		_, err := env.posts.UpdatePost(bob.ID, post.ID, "Hijack", "content")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("invalid edit", func(t *testing.T) {
		_, err := env.posts.UpdatePost(alice.ID, post.ID, "", "content")
		assert.ErrorIs(t, err, ErrInvalid)

		stored, err := env.store.Posts.GetByID(post.ID)
		require.NoError(t, err)
		assert.Equal(t, "New title", stored.Title)
	})

	t.Run("missing post", func(t *testing.T) {
		_, err := env.posts.UpdatePost(alice.ID, 999, "t", "c")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	ctx := context.Background()

	post, err := env.posts.CreatePost(alice.ID, "Title", "content")
	require.NoError(t, err)
	reply, err := env.replies.CreateReply(ctx, post.ID, 0, bob.ID, "reply")
	require.NoError(t, err)
	_, err = env.replies.LikeReply(alice.ID, post.ID, reply.ID)
	require.NoError(t, err)
	_, err = env.posts.LikePost(bob.ID, post.ID)
	require.NoError(t, err)
	env.replies.Wait()

	assert.ErrorIs(t, env.posts.DeletePost(bob.ID, post.ID), ErrForbidden)

	require.NoError(t, env.posts.DeletePost(alice.ID, post.ID))

	_, err = env.posts.GetPost(post.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := env.store.Replies.CountByPost(post.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	liked, err := env.store.Likes.HasLiked(models.TargetReply, reply.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	liked, err = env.store.Likes.HasLiked(models.TargetPost, post.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	assert.Contains(t, env.hub.types(), events.PostDeleted)
	assert.ErrorIs(t, env.posts.DeletePost(alice.ID, post.ID), ErrNotFound)
}

func TestLikePost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	post, err := env.posts.CreatePost(alice.ID, "Title", "content")
	require.NoError(t, err)

	res, err := env.posts.LikePost(bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Likes: 1, Liked: true, Changed: true}, *res)

	res, err = env.posts.LikePost(bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Likes: 1, Liked: true, Changed: false}, *res)

	res, err = env.posts.LikePost(alice.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Likes)

	res, err = env.posts.UnlikePost(bob.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeResult{Likes: 1, Liked: false, Changed: true}, *res)

	_, err = env.posts.LikePost(bob.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	liked := 0
	for _, typ := range env.hub.types() {
		if typ == events.PostLiked {
			liked++
		}
	}
	assert.Equal(t, 3, liked, "only changes are published")
}
