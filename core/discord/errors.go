package discord

import (
	"errors"
	"fmt"
	"net/http"

	"guild-backup/core/guild"

	"github.com/bwmarrin/discordgo"
)

// classify maps platform errors onto the guild sentinels. Lost authorization
// is fatal; a 403 is left recoverable since it usually concerns one entity.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, discordgo.ErrUnauthorized) {
		return fmt.Errorf("%s: %w: %w", op, guild.ErrFatal, err)
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %w", op, guild.ErrFatal, err)
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w: %w", op, guild.ErrNotFound, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
