package dashreq

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nojima/dashreq/api"
	"github.com/nojima/dashreq/config"
	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/flags"
	"github.com/nojima/dashreq/input"
	"github.com/nojima/dashreq/internal/json"
	"github.com/nojima/dashreq/logging"
	"github.com/nojima/dashreq/output"
	"github.com/nojima/dashreq/session"
	"github.com/nojima/dashreq/version"
	"github.com/pkg/errors"
)

func Main() error {
	// Parse flags
	flagSet, options, err := flags.Parse(os.Args)
	if err != nil {
		return err
	}
	if options.Version {
		fmt.Printf("dashreq %s\n", version.Current())
		return nil
	}
	if options.Licenses {
		version.PrintLicenses(os.Stdout)
		return nil
	}

	// Load config
	cfg, err := config.Load(options.ConfigFile)
	if err != nil {
		return err
	}
	options.ApplyTo(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := setupLogging(cfg); err != nil {
		return err
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Parse positional arguments
	var in *input.Input
	if options.GraphQL == "" && options.SQL == "" && !options.Logout && options.Login == "" {
		in, err = input.ParseArgs(flagSet.Args(), os.Stdin, &options.InputOptions)
		if _, ok := errors.Cause(err).(*input.UsageError); ok {
			flagSet.PrintUsage(os.Stderr)
			return err
		}
		if err != nil {
			return err
		}
	}

	clientOptions := []api.Option{
		api.WithSession(session.NewStore(cfg.SessionFile), session.WithSignOutHook(func(resp *exchange.Response) {
			fmt.Fprintf(os.Stderr, "Session was rejected by %s; sign in again with --login.\n", resp.URL())
		})),
	}
	if in != nil && in.BaseURL != "" {
		clientOptions = append(clientOptions, api.WithBaseURL(in.BaseURL))
	}
	client, err := api.New(cfg, clientOptions...)
	if err != nil {
		return err
	}

	switch {
	case options.Logout:
		return client.Session().Logout()
	case options.Login != "":
		return login(ctx, client, options.Login)
	}

	// Streams and downloads may outlive the access token.
	if options.ResponseType == exchange.StreamResponse && client.Session().SignedIn() {
		stopRefresh := client.Session().StartAutoRefresh(ctx, cfg.RefreshLead)
		defer stopRefresh()
		if err := client.Session().Watch(ctx); err != nil {
			logging.WithError(err).Debugf("not watching the session file")
		}
	}

	var req *exchange.Request
	var resp *exchange.Response
	switch {
	case options.GraphQL != "":
		resp, err = runGraphQL(ctx, client, options)
	case options.SQL != "":
		resp = client.SQL(ctx, options.SQL, sqlParams(flagSet.Args())...)
	default:
		req, err = input.BuildRequest(in)
		if err != nil {
			return err
		}
		req.NoAuth = options.NoAuth
		req.ResponseType = options.ResponseType
		resp = client.Request(ctx, req)
	}
	if err != nil {
		return err
	}
	defer resp.Close()

	// Print response
	writer := bufio.NewWriter(os.Stdout)
	defer writer.Flush()
	printer := output.NewPrinter(writer, &options.OutputOptions)
	if err := printExchange(printer, writer, &options.OutputOptions, req, resp); err != nil {
		return err
	}

	if options.GraphQL != "" {
		if messages := api.GraphQLErrors(resp); len(messages) > 0 {
			return errors.Errorf("GraphQL errors: %s", strings.Join(messages, "; "))
		}
	}
	return nil
}

func setupLogging(cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	return logging.ConfigureOutput(cfg.LogFile)
}

func login(ctx context.Context, client *api.Client, user string) error {
	password, ok := os.LookupEnv(config.EnvPassword)
	if !ok {
		var err error
		password, err = flags.AskPassword(user)
		if err != nil {
			return err
		}
	}
	if err := client.Session().Login(ctx, user, password); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Signed in as %s.\n", user)
	return nil
}

func runGraphQL(ctx context.Context, client *api.Client, options *flags.OptionSet) (*exchange.Response, error) {
	query := options.GraphQL
	if strings.HasPrefix(query, "@") {
		b, err := os.ReadFile(query[1:])
		if err != nil {
			return nil, errors.Wrapf(err, "reading GraphQL query from '%s'", query[1:])
		}
		query = string(b)
	}
	var variables map[string]any
	if options.Variables != "" {
		if err := json.Unmarshal([]byte(options.Variables), &variables); err != nil {
			return nil, errors.Wrap(err, "parsing --variables")
		}
	}
	return client.GraphQL(ctx, query, variables), nil
}

// sqlParams passes arguments that are valid JSON through as JSON values and
// everything else as strings.
func sqlParams(args []string) []any {
	params := make([]any, 0, len(args))
	for _, arg := range args {
		if json.Valid([]byte(arg)) {
			params = append(params, json.RawMessage(arg))
		} else {
			params = append(params, arg)
		}
	}
	return params
}

func printExchange(printer output.Printer, writer *bufio.Writer, options *output.Options, req *exchange.Request, resp *exchange.Response) error {
	if req != nil {
		if err := printRequest(printer, writer, options, req, resp); err != nil {
			return err
		}
	}

	if resp.Status == exchange.StatusNoResponse {
		return resp.CheckError()
	}
	if options.PrintResponseHeader {
		if err := printer.PrintStatusLine(resp.Proto, resp.Status); err != nil {
			return err
		}
		if err := printer.PrintHeader(resp.Header); err != nil {
			return err
		}
	}
	if err := resp.CheckError(); err != nil {
		return err
	}
	writer.Flush()

	contentType := resp.Header.Get("Content-Type")
	if options.Download {
		body, err := resp.Body()
		if err != nil {
			return err
		}
		contentLength, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			contentLength = -1
		}
		fileWriter := output.NewFileWriter(urlPath(resp.URL()), options, os.Stderr)
		_, err = fileWriter.Download(body, contentLength)
		return err
	}
	if !options.PrintResponseBody {
		return nil
	}
	if body, err := resp.Body(); err == nil {
		return printer.PrintBody(body, contentType)
	}
	raw, err := resp.Bytes()
	if err != nil {
		return err
	}
	return printer.PrintBody(bytes.NewReader(raw), contentType)
}

func printRequest(printer output.Printer, writer io.Writer, options *output.Options, req *exchange.Request, resp *exchange.Response) error {
	if options.PrintRequestHeader {
		if err := printer.PrintRequestLine(resp.Method(), resp.URL()); err != nil {
			return err
		}
		header := make(http.Header, len(req.Header))
		for name, value := range logging.MaskHeaders(req.Header) {
			header.Set(name, value)
		}
		if err := printer.PrintHeader(header); err != nil {
			return err
		}
	}
	if options.PrintRequestBody {
		body, contentType, ok := printableBody(req.Body)
		if ok {
			if err := printer.PrintBody(body, contentType); err != nil {
				return err
			}
			if _, err := io.WriteString(writer, "\n\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

func printableBody(body any) (io.Reader, string, bool) {
	switch b := body.(type) {
	case nil:
		return nil, "", false
	case *exchange.File:
		return bytes.NewReader(b.Data), b.ContentType, true
	case *exchange.Form:
		return nil, "", false
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", false
		}
		return bytes.NewReader(data), "application/json", true
	}
}

func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Path
}
