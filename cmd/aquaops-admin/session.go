package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/target/aquaops-console/internal/bootstrap"
	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	apperrors "github.com/target/aquaops-console/internal/errors"
	"github.com/target/aquaops-console/internal/service"
)

const defaultCommandTimeout = 30 * time.Second

var errNotLoggedIn = errors.New("not logged in")

// adminSession is a session over the durable store shared with the console.
type adminSession struct {
	*bootstrap.Session
	store *bootstrap.DurableStore
}

// openSession builds the session subsystem without navigation or metrics.
func openSession(cmdCtx *commandContext) (*adminSession, error) {
	store, err := bootstrap.OpenStore(bootstrap.StoreOptions{
		Store:  cmdCtx.Config.Store,
		Redis:  cmdCtx.Config.Redis,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return nil, err
	}
	sess, err := bootstrap.BuildSession(cmdCtx.Ctx, bootstrap.SessionOptions{
		Config: &cmdCtx.Config,
		Store:  store.KV,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	return &adminSession{Session: sess, store: store}, nil
}

// Close waits for detached logout and audit calls, then releases the store.
func (s *adminSession) Close(cmdCtx *commandContext) {
	s.Session.Close()
	if err := s.store.Close(); err != nil {
		cmdCtx.Logger.Warn("store close failed", "error", err)
	}
}

func withSession(cmdCtx *commandContext, fn func(ctx context.Context, sess *adminSession) error) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, defaultCommandTimeout)
	defer cancel()

	sess, err := openSession(cmdCtx)
	if err != nil {
		return err
	}
	defer sess.Close(cmdCtx)
	return fn(ctx, sess)
}

type loginOptions struct {
	Username      string
	Password      string
	PasswordStdin bool
	RememberMe    bool
}

func parseLoginFlags(args []string, in io.Reader) (loginOptions, error) {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts loginOptions
	fs.StringVar(&opts.Username, "username", "", "Username (required)")
	fs.StringVar(&opts.Password, "password", "", "Password (prefer --password-stdin)")
	fs.BoolVar(&opts.PasswordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	fs.BoolVar(&opts.RememberMe, "remember-me", false, "Ask the gateway for a long-lived session")

	if err := fs.Parse(args); err != nil {
		return loginOptions{}, err
	}

	opts.Username = strings.TrimSpace(opts.Username)
	if opts.Username == "" {
		return loginOptions{}, errors.New("--username is required")
	}
	if opts.PasswordStdin {
		if opts.Password != "" {
			return loginOptions{}, errors.New("--password and --password-stdin are mutually exclusive")
		}
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return loginOptions{}, fmt.Errorf("read password: %w", err)
		}
		opts.Password = strings.TrimRight(line, "\r\n")
	}
	if opts.Password == "" {
		return loginOptions{}, errors.New("a password is required (--password or --password-stdin)")
	}

	return opts, nil
}

func runLogin(cmdCtx *commandContext, args []string) error {
	opts, err := parseLoginFlags(args, cmdCtx.In)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		err := sess.Auth.Login(ctx, domainauth.Credentials{
			Username:   opts.Username,
			Password:   opts.Password,
			RememberMe: opts.RememberMe,
		})
		if err != nil {
			return fmt.Errorf("login: %s", apperrors.Message(err))
		}

		user := sess.State.User()
		return writef(cmdCtx.Out, "Logged in as %s (%s), session valid until %s\n",
			user.Username, formatRoles(user.Roles), formatExpiry(ctx, sess.Tokens))
	})
}

func runLogout(cmdCtx *commandContext, _ []string) error {
	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		// Restoring first lets the logout audit entry name the user.
		sess.Auth.Restore(ctx)
		if sess.Tokens.RefreshToken(ctx) == "" && sess.Tokens.AccessToken(ctx) == "" {
			return writeln(cmdCtx.Out, "No stored session")
		}
		sess.Auth.Logout(ctx)
		return writeln(cmdCtx.Out, "Logged out")
	})
}

type statusOptions struct {
	JSON bool
}

func parseStatusFlags(args []string) (statusOptions, error) {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts statusOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print machine-readable JSON")
	if err := fs.Parse(args); err != nil {
		return statusOptions{}, err
	}
	return opts, nil
}

type sessionStatus struct {
	Authenticated  bool      `json:"authenticated"`
	UserID         string    `json:"userId,omitempty"`
	Username       string    `json:"username,omitempty"`
	OrganizationID string    `json:"organizationId,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt,omitzero"`
	RemainingSecs  int64     `json:"remainingSeconds"`
	ExpiringSoon   bool      `json:"expiringSoon"`
	HasRefresh     bool      `json:"hasRefreshToken"`
}

func runStatus(cmdCtx *commandContext, args []string) error {
	opts, err := parseStatusFlags(args)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		st := collectStatus(ctx, sess)
		if opts.JSON {
			enc := json.NewEncoder(cmdCtx.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		return printStatus(cmdCtx.Out, st)
	})
}

func collectStatus(ctx context.Context, sess *adminSession) sessionStatus {
	st := sessionStatus{
		Authenticated: sess.Auth.Restore(ctx),
		RemainingSecs: sess.Tokens.RemainingTime(ctx),
		ExpiringSoon:  sess.Tokens.IsTokenExpiringSoon(ctx),
		HasRefresh:    sess.Tokens.RefreshToken(ctx) != "",
	}
	if expiry, ok := sess.Tokens.Expiry(ctx); ok {
		st.ExpiresAt = expiry.UTC()
	}
	if user := sess.Users.Load(ctx); user != nil {
		st.UserID = user.UserID
		st.Username = user.Username
		st.OrganizationID = user.OrganizationID
	}
	return st
}

func printStatus(w io.Writer, st sessionStatus) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Authenticated", fmt.Sprintf("%t", st.Authenticated)},
		{"User", orDash(st.Username)},
		{"User ID", orDash(st.UserID)},
		{"Organization", orDash(st.OrganizationID)},
		{"Expires", orDash(formatTime(st.ExpiresAt))},
		{"Remaining", (time.Duration(st.RemainingSecs) * time.Second).String()},
		{"Expiring soon", fmt.Sprintf("%t", st.ExpiringSoon)},
		{"Refresh token", fmt.Sprintf("%t", st.HasRefresh)},
	}
	for _, row := range rows {
		if err := writef(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type whoamiOptions struct {
	JSON bool
}

func parseWhoamiFlags(args []string) (whoamiOptions, error) {
	fs := flag.NewFlagSet("whoami", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts whoamiOptions
	fs.BoolVar(&opts.JSON, "json", false, "Print the cached user as JSON")
	if err := fs.Parse(args); err != nil {
		return whoamiOptions{}, err
	}
	return opts, nil
}

func runWhoami(cmdCtx *commandContext, args []string) error {
	opts, err := parseWhoamiFlags(args)
	if err != nil {
		return err
	}

	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		user := sess.Users.Load(ctx)
		if user == nil || !sess.Tokens.HasValidToken(ctx) {
			return errNotLoggedIn
		}
		if opts.JSON {
			enc := json.NewEncoder(cmdCtx.Out)
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		}
		name := strings.TrimSpace(user.FirstName + " " + user.LastName)
		return writef(cmdCtx.Out, "%s (%s) %s org=%s roles=%s\n",
			user.Username, user.UserID, orDash(name), orDash(user.OrganizationID), formatRoles(user.Roles))
	})
}

func runRefresh(cmdCtx *commandContext, _ []string) error {
	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		if err := sess.Auth.Refresh(ctx); err != nil {
			// A failed refresh has already cleared the stored session.
			return fmt.Errorf("refresh: %s", apperrors.Message(err))
		}
		return writef(cmdCtx.Out, "Session refreshed, valid until %s\n", formatExpiry(ctx, sess.Tokens))
	})
}

type decodeOptions struct {
	Token string
}

func parseDecodeFlags(args []string) (decodeOptions, error) {
	fs := flag.NewFlagSet("decode-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts decodeOptions
	fs.StringVar(&opts.Token, "token", "", "Token to decode (defaults to the stored access token)")
	if err := fs.Parse(args); err != nil {
		return decodeOptions{}, err
	}
	opts.Token = strings.TrimSpace(opts.Token)
	return opts, nil
}

func runDecodeToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseDecodeFlags(args)
	if err != nil {
		return err
	}
	if opts.Token != "" {
		return printClaims(cmdCtx.Out, opts.Token)
	}

	return withSession(cmdCtx, func(ctx context.Context, sess *adminSession) error {
		token := sess.Tokens.AccessToken(ctx)
		if token == "" {
			return errNotLoggedIn
		}
		return printClaims(cmdCtx.Out, token)
	})
}

func printClaims(w io.Writer, token string) error {
	claims := service.DecodeToken(token)
	if claims == nil {
		return errors.New("token payload could not be decoded")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(claims)
}

func formatRoles(roles []domainauth.Role) string {
	if len(roles) == 0 {
		return "no roles"
	}
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func formatExpiry(ctx context.Context, tokens *service.TokenStore) string {
	expiry, ok := tokens.Expiry(ctx)
	if !ok {
		return "unknown"
	}
	return formatTime(expiry)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
