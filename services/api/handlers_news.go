package api

import (
	"net/http"

	"seatrail/services/news"
)

func (a *API) handleListNews(w http.ResponseWriter, r *http.Request) {
	posts, err := a.svc.News.ListPublished(r.Context(), viewer(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": orEmpty(posts)})
}

func (a *API) handleGetNews(w http.ResponseWriter, r *http.Request) {
	a.getNews(w, r, false)
}

func (a *API) handleAdminGetNews(w http.ResponseWriter, r *http.Request) {
	a.getNews(w, r, true)
}

func (a *API) getNews(w http.ResponseWriter, r *http.Request, drafts bool) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.svc.News.Get(r.Context(), id, viewer(r), drafts)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	post.Comments = orEmpty(post.Comments)
	respondJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (a *API) handleNewsComments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	comments, err := a.svc.News.ListComments(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"comments": orEmpty(comments)})
}

func (a *API) handleLikeNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.News.Like(r.Context(), actor(r), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUnlikeNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.News.Unlike(r.Context(), actor(r), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAddNewsComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	comment, err := a.svc.News.AddComment(r.Context(), actor(r), id, req.Text)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"comment": comment})
}

func (a *API) handleDeleteNewsComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	commentID, err := pathID(r, "commentID")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.News.DeleteComment(r.Context(), actor(r), id, commentID); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleAdminListNews(w http.ResponseWriter, r *http.Request) {
	posts, err := a.svc.News.ListAll(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"posts": orEmpty(posts)})
}

func (a *API) handleCreateNews(w http.ResponseWriter, r *http.Request) {
	var in news.PostInput
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.svc.News.CreatePost(r.Context(), actor(r), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"post": post})
}

func (a *API) handleUpdateNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var in news.PostUpdate
	if err := decodeJSON(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	post, err := a.svc.News.UpdatePost(r.Context(), id, in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"post": post})
}

func (a *API) handleDeleteNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := a.svc.News.DeletePost(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
