package controllers

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/bonlog/bonlog/app/models"
	"github.com/bonlog/bonlog/app/repository"
	"github.com/bonlog/bonlog/internal/pkg/database"
	"github.com/bonlog/bonlog/internal/pkg/entitlements"
	"github.com/bonlog/bonlog/internal/pkg/jobqueue"
	"github.com/bonlog/bonlog/internal/pkg/metrics/counter"
	"github.com/bonlog/bonlog/internal/pkg/shortener"
	"github.com/bonlog/bonlog/internal/pkg/storage"
	"github.com/bonlog/bonlog/internal/pkg/usercontext"
	"github.com/bonlog/bonlog/internal/pkg/utils"
)

// createPostRequest is the JSON body for the post creation API.
type createPostRequest struct {
	Content     string   `json:"content"`
	Visibility  string   `json:"visibility"`
	MediaKeys   []string `json:"media_keys"`
	MediaKinds  []string `json:"media_kinds"`
	ReplyToID   *uint    `json:"reply_to_id"`
	ScheduledAt string   `json:"scheduled_at"`
}

// HandleAPIPostCreate creates a timeline post. Length, media count and
// scheduling limits depend on the author's membership.
func HandleAPIPostCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}

	limits := entitlements.LimitsFor(userCtx.IsPremium)

	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_required"})
	}
	if utf8.RuneCountInString(req.Content) > limits.MaxPostLength {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      "content_too_long",
			"max_length": limits.MaxPostLength,
		})
	}

	images, videos := 0, 0
	for _, kind := range req.MediaKinds {
		switch kind {
		case models.MediaKindImage:
			images++
		case models.MediaKindVideo:
			videos++
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_media_kind"})
		}
	}
	if len(req.MediaKeys) != len(req.MediaKinds) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "media_mismatch"})
	}
	if images > limits.MaxImages || videos > limits.MaxVideos {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      "too_many_attachments",
			"max_images": limits.MaxImages,
			"max_videos": limits.MaxVideos,
		})
	}

	post := models.Post{
		UUID:       uuid.New().String(),
		UserID:     userCtx.UserID,
		Content:    req.Content,
		Visibility: req.Visibility,
		ReplyToID:  req.ReplyToID,
	}
	if post.Visibility == "" {
		post.Visibility = models.PostVisibilityPublic
	}

	if req.ScheduledAt != "" {
		if !limits.CanSchedulePost {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "premium_required",
				"message": "予約投稿はプレミアム会員限定の機能です",
			})
		}
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil || !t.After(time.Now()) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_schedule_time"})
		}
		post.ScheduledAt = &t
	} else {
		now := time.Now()
		post.PublishedAt = &now
	}

	for i, key := range req.MediaKeys {
		post.Media = append(post.Media, models.PostMedia{
			Kind:      req.MediaKinds[i],
			ObjectKey: key,
			Position:  i,
		})
	}

	if err := post.Validate(); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	if err := repository.GetGlobalFactory().Post.Create(&post); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "create_failed"})
	}

	if post.ReplyToID != nil {
		notifyReply(userCtx.UserID, *post.ReplyToID)
	}
	notifyMentions(userCtx.UserID, &post)

	return c.Status(fiber.StatusCreated).JSON(post)
}

// HandleAPITimeline returns the viewer's home timeline page.
func HandleAPITimeline(c *fiber.Ctx) error {
	viewerID := usercontext.GetUserID(c)
	posts, err := repository.GetGlobalFactory().Post.Timeline(viewerID, parseCursor(c), c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "timeline_failed"})
	}
	return c.JSON(fiber.Map{"posts": posts, "next_before": nextCursor(posts)})
}

// HandleAPIPostSearch runs a full-text search over published posts.
func HandleAPIPostSearch(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "query_required"})
	}
	posts, err := repository.GetGlobalFactory().Post.Search(query, parseCursor(c), c.QueryInt("limit", 20))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "search_failed"})
	}
	return c.JSON(fiber.Map{"posts": posts, "next_before": nextCursor(posts)})
}

// HandleAPIPostGet returns a single post by UUID. Views are counted in
// Redis and flushed to the database in batches.
func HandleAPIPostGet(c *fiber.Ctx) error {
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	_ = counter.AddPostView(post.ID)

	return c.JSON(fiber.Map{
		"post":       post,
		"share_code": shortener.EncodeID(post.ID),
	})
}

// HandlePostShareLink resolves a short share code to the post it names.
func HandlePostShareLink(c *fiber.Ctx) error {
	id := shortener.DecodeID(c.Params("code"))
	if id == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	db := database.GetDB()
	var post models.Post
	if err := db.First(&post, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	return c.Redirect("/api/v1/posts/"+post.UUID, fiber.StatusSeeOther)
}

// HandleAPIPostDelete removes the caller's own post.
func HandleAPIPostDelete(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().Post

	post, err := repo.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if post.UserID != userCtx.UserID && !userCtx.IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}
	if err := repo.Delete(post); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "delete_failed"})
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleAPIPostLike toggles a like on a post and notifies the author.
func HandleAPIPostLike(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	liked, err := models.ToggleLike(database.GetDB(), userCtx.UserID, post.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "like_failed"})
	}

	if liked && post.UserID != userCtx.UserID {
		if q := jobqueue.GetQueue(); q != nil {
			jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
				UserID:      post.UserID,
				ActorID:     userCtx.UserID,
				Type:        models.NotificationTypeLike,
				ReferenceID: post.ID,
			})
		}
	}

	return c.JSON(fiber.Map{"liked": liked})
}

// HandleAPIPostBookmark toggles a private bookmark. No notification; the
// author never sees who bookmarked.
func HandleAPIPostBookmark(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	db := database.GetDB()
	var existing models.Bookmark
	res := db.Where("user_id = ? AND post_id = ?", userCtx.UserID, post.ID).First(&existing)
	if res.Error == nil {
		if err := db.Delete(&existing).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "bookmark_failed"})
		}
		return c.JSON(fiber.Map{"bookmarked": false})
	}

	if err := db.Create(&models.Bookmark{UserID: userCtx.UserID, PostID: post.ID}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "bookmark_failed"})
	}
	return c.JSON(fiber.Map{"bookmarked": true})
}

// HandleAPIPostRepost toggles a repost of the post onto the caller's own
// timeline and notifies the original author.
func HandleAPIPostRepost(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if post.RepostOfID != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "cannot_repost_repost"})
	}

	reposted, err := models.ToggleRepost(database.GetDB(), userCtx.UserID, post.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "repost_failed"})
	}

	if reposted && post.UserID != userCtx.UserID {
		if q := jobqueue.GetQueue(); q != nil {
			jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
				UserID:      post.UserID,
				ActorID:     userCtx.UserID,
				Type:        models.NotificationTypeRepost,
				ReferenceID: post.ID,
			})
		}
	}

	return c.JSON(fiber.Map{"reposted": reposted})
}

// HandleAPIPostComments lists a post's comments, oldest first.
func HandleAPIPostComments(c *fiber.Ctx) error {
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	var comments []models.Comment
	err = database.GetDB().
		Where("post_id = ?", post.ID).
		Order("created_at ASC").
		Limit(c.QueryInt("limit", 50)).
		Preload("User").
		Find(&comments).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "comments_failed"})
	}

	return c.JSON(fiber.Map{"comments": comments})
}

type createCommentRequest struct {
	Content string `json:"content"`
}

// HandleAPIPostCommentCreate adds a comment and notifies the post author.
// Comments share the author's post length limit.
func HandleAPIPostCommentCreate(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_body"})
	}
	if req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "content_required"})
	}
	limits := entitlements.LimitsFor(userCtx.IsPremium)
	if utf8.RuneCountInString(req.Content) > limits.MaxPostLength {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":      "content_too_long",
			"max_length": limits.MaxPostLength,
		})
	}

	comment := models.Comment{
		UserID:  userCtx.UserID,
		PostID:  post.ID,
		Content: req.Content,
	}
	if err := database.GetDB().Create(&comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "comment_failed"})
	}

	if post.UserID != userCtx.UserID {
		if q := jobqueue.GetQueue(); q != nil {
			jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
				UserID:      post.UserID,
				ActorID:     userCtx.UserID,
				Type:        models.NotificationTypeComment,
				ReferenceID: post.ID,
			})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// HandleAPIPostAnalytics returns per-post engagement numbers. Premium only.
func HandleAPIPostAnalytics(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	limits := entitlements.LimitsFor(userCtx.IsPremium)
	if !limits.CanViewAnalytics {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   "premium_required",
			"message": "投稿分析はプレミアム会員限定の機能です",
		})
	}

	post, err := repository.GetGlobalFactory().Post.GetByUUID(c.Params("uuid"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
	}
	if post.UserID != userCtx.UserID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	db := database.GetDB()
	var bookmarks, replies int64
	db.Model(&models.Bookmark{}).Where("post_id = ?", post.ID).Count(&bookmarks)
	db.Model(&models.Post{}).Where("reply_to_id = ?", post.ID).Count(&replies)

	return c.JSON(fiber.Map{
		"post_uuid": post.UUID,
		"likes":     post.LikeCount,
		"reposts":   post.RepostCount,
		"bookmarks": bookmarks,
		"replies":   replies,
	})
}

// HandleAPIMediaPresign hands the client a presigned S3 PUT URL for a direct
// upload. Attachment caps are enforced again at post creation.
func HandleAPIMediaPresign(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	mimeType := c.Query("mime_type")
	if !storage.IsAllowedMimeType(mimeType) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported_mime_type"})
	}

	limits := entitlements.LimitsFor(userCtx.IsPremium)
	if storage.KindForMimeType(mimeType) == models.MediaKindVideo && limits.MaxVideos == 0 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "premium_required"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	upload, err := storage.NewUploadURL(ctx, userCtx.UserID, mimeType)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "presign_failed"})
	}
	return c.JSON(upload)
}

// nextCursor returns the published_at of the oldest post in the page, for
// the client to pass back as ?before=.
func nextCursor(posts []models.Post) string {
	if len(posts) == 0 {
		return ""
	}
	last := posts[len(posts)-1]
	if last.PublishedAt == nil {
		return ""
	}
	return last.PublishedAt.Format(time.RFC3339)
}

// notifyMentions resolves @name mentions in the post body and notifies
// the mentioned users.
func notifyMentions(actorID uint, post *models.Post) {
	q := jobqueue.GetQueue()
	if q == nil {
		return
	}

	repo := repository.GetGlobalFactory().User
	for _, name := range utils.ExtractMentions(post.Content) {
		user, err := repo.GetByName(name)
		if err != nil || user.ID == actorID {
			continue
		}
		jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
			UserID:      user.ID,
			ActorID:     actorID,
			Type:        models.NotificationTypeMention,
			ReferenceID: post.ID,
		})
	}
}

// notifyReply fans a reply notification out to the parent author.
func notifyReply(actorID uint, parentPostID uint) {
	db := database.GetDB()
	var parent models.Post
	if err := db.First(&parent, parentPostID).Error; err != nil {
		return
	}
	if q := jobqueue.GetQueue(); q != nil {
		jobqueue.EnqueueNotification(q, jobqueue.NotificationJobPayload{
			UserID:      parent.UserID,
			ActorID:     actorID,
			Type:        models.NotificationTypeReply,
			ReferenceID: parentPostID,
		})
	}
}
