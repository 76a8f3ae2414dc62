package board

import "errors"

var (
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotOwner         = errors.New("only the author can change this post")
	ErrEmptyComment     = errors.New("comment cannot be empty")
	ErrNotConfirmed     = errors.New("delete was not confirmed")
	ErrInvalidCategory  = errors.New("unknown category")
	ErrInvalidSort      = errors.New("unknown sort mode")
	ErrInvalidState     = errors.New("not allowed in the current state")
	ErrStepIncomplete   = errors.New("current step is incomplete")
	ErrDraftNotFound    = errors.New("draft not found")
	ErrMissingField     = errors.New("title and content are required")
	ErrInvalidVote      = errors.New("vote must be +1 or -1")
)

// Banner and inline messages shown to readers.
const (
	MsgAuthFailed      = "Failed to authenticate. Please try again or contact support."
	MsgLoadPostsFailed = "Failed to load posts. Please try again."
	MsgNoPosts         = "No posts found. Create one to get started!"
	MsgLoadPostFailed  = "Failed to load post or comments. Please try again."
	MsgUpvoteFailed    = "Failed to upvote. Please try again."
	MsgDownvoteFailed  = "Failed to downvote. Please try again."
	MsgCommentFailed   = "Failed to add comment. Please try again."
	MsgUpdateFailed    = "Failed to update post. Please try again."
	MsgDeleteFailed    = "Failed to delete post. Please try again."
	MsgCreateFailed    = "Failed to create post. Please try again."
)
