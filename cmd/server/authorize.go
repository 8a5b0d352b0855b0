package main

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/DoyleJ11/slot-draft-backend/internal/calendar"
)

func newAuthorizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authorize",
		Short: "Grant calendar access once and store the token file.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			calCfg, err := calendar.LoadConfig()
			if err != nil {
				return err
			}
			if calCfg.ClientID == "" || calCfg.ClientSecret == "" {
				return errors.New("SLOTDRAFT_GOOGLE_CLIENT_ID and SLOTDRAFT_GOOGLE_CLIENT_SECRET must be set")
			}
			g := calendar.NewGoogle(calCfg, nil)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Open this address, approve access, then paste the code or the full redirect address here:")
			state := uuid.NewString()
			fmt.Fprintln(out, g.AuthCodeURL(state))
			fmt.Fprint(out, "> ")

			sc := bufio.NewScanner(cmd.InOrStdin())
			if !sc.Scan() {
				if err := sc.Err(); err != nil {
					return err
				}
				return errors.New("no code entered")
			}
			code, err := authCode(sc.Text(), state)
			if err != nil {
				return err
			}
			if err := g.Exchange(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintf(out, "Token saved to %s\n", calCfg.TokenFile)
			return nil
		},
	}
}

// authCode accepts either the bare code or the redirect address holding it.
// A redirect address must carry the state sent with the consent request.
func authCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		if input == "" {
			return "", errors.New("empty code")
		}
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect address: %w", err)
	}
	q := u.Query()
	if q.Get("state") != state {
		return "", errors.New("redirect address does not belong to this request; start again")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("redirect address has no code parameter")
	}
	return code, nil
}
