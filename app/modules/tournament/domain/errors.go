package tournamentdomain

import (
	"errors"
	"fmt"
)

// ErrBlockedDMs is returned by the messenger when a user does not accept direct
// messages from the bot. Callers downgrade it to a host-channel notice.
var ErrBlockedDMs = errors.New("recipient does not accept direct messages")

// ErrMessageNotFound is returned when a message was deleted outside the bot.
var ErrMessageNotFound = errors.New("message not found")

// UserFacing is implemented by errors whose text is safe to show the user.
type UserFacing interface {
	error
	UserMessage() string
}

// UserError is a bad input, unauthorised action or wrong tournament state.
type UserError struct {
	Message string
}

func NewUserError(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

func (e *UserError) Error() string       { return e.Message }
func (e *UserError) UserMessage() string { return e.Message }

// TournamentNotFoundError covers both unknown IDs and a status that does not
// match the operation.
type TournamentNotFoundError struct {
	ID TournamentID
}

func (e *TournamentNotFoundError) Error() string {
	return fmt.Sprintf("Unknown tournament %s", e.ID)
}

func (e *TournamentNotFoundError) UserMessage() string { return e.Error() }

type UnauthorisedHostError struct {
	Host         DiscordID
	TournamentID TournamentID
}

func (e *UnauthorisedHostError) Error() string {
	return fmt.Sprintf("User %s not authorised for tournament %s", e.Host, e.TournamentID)
}

func (e *UnauthorisedHostError) UserMessage() string { return e.Error() }

type UnauthorisedPlayerError struct {
	Player       DiscordID
	TournamentID TournamentID
}

func (e *UnauthorisedPlayerError) Error() string {
	return fmt.Sprintf("User %s not a player in tournament %s", e.Player, e.TournamentID)
}

func (e *UnauthorisedPlayerError) UserMessage() string { return e.Error() }

type UnauthorisedTOError struct {
	User DiscordID
}

func (e *UnauthorisedTOError) Error() string {
	return fmt.Sprintf("User %s not authorised to create tournaments in this server.", e.User)
}

func (e *UnauthorisedTOError) UserMessage() string { return e.Error() }

// BracketAPIError is a rejection or fault reported by the bracket service.
type BracketAPIError struct {
	StatusCode int
	Message    string
}

func (e *BracketAPIError) Error() string {
	return fmt.Sprintf("bracket service error (%d): %s", e.StatusCode, e.Message)
}

// NotFound reports whether the bracket service did not know the resource.
func (e *BracketAPIError) NotFound() bool {
	return e.StatusCode == 404
}

// UserMessage returns the user-facing text of err if it has one.
func UserMessage(err error) (string, bool) {
	var uf UserFacing
	if errors.As(err, &uf) {
		return uf.UserMessage(), true
	}
	return "", false
}
