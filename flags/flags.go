package flags

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/nojima/dashreq/config"
	"github.com/nojima/dashreq/exchange"
	"github.com/nojima/dashreq/input"
	"github.com/nojima/dashreq/output"
	"github.com/pborman/getopt"
	"github.com/pkg/errors"
)

// notSpecified marks a string flag the user did not pass.
const notSpecified = "\000"

type FlagSet interface {
	Args() []string
	PrintUsage(w io.Writer)
}

// OptionSet is everything the command line says. Settings that also live in
// the config file are pointers or empty strings when not given, so they only
// override the file when passed.
type OptionSet struct {
	InputOptions  input.Options
	OutputOptions output.Options

	ConfigFile      string
	BaseURL         string
	Timeout         *time.Duration
	FollowRedirects bool
	SkipVerify      bool
	ForceHTTP1      bool
	ProxyURL        string
	SessionFile     string

	NoAuth       bool
	ResponseType exchange.ResponseType

	Login     string
	Logout    bool
	GraphQL   string
	Variables string
	SQL       string

	Verbose  bool
	LogFile  string
	Version  bool
	Licenses bool
}

type terminalInfo struct {
	stdinIsTerminal  bool
	stdoutIsTerminal bool
}

func Parse(args []string) (FlagSet, *OptionSet, error) {
	terminalInfo := terminalInfo{
		stdinIsTerminal:  isatty.IsTerminal(os.Stdin.Fd()),
		stdoutIsTerminal: isatty.IsTerminal(os.Stdout.Fd()),
	}
	_, flagSet, optionSet, err := parse(args, terminalInfo)
	return flagSet, optionSet, err
}

func parse(args []string, terminalInfo terminalInfo) ([]string, FlagSet, *OptionSet, error) {
	optionSet := &OptionSet{}
	inputOptions := &optionSet.InputOptions
	outputOptions := &optionSet.OutputOptions
	var ignoreStdin bool
	var pretty string
	printFlag := notSpecified
	timeout := notSpecified
	responseType := "json"

	flagSet := getopt.New()
	flagSet.SetParameters("[METHOD] PATH [REQUEST_ITEM [REQUEST_ITEM ...]]")
	flagSet.BoolVarLong(&inputOptions.Form, "form", 'f', "serialize body as multipart/form-data")
	flagSet.StringVarLong(&printFlag, "print", 'p', "specifies what the output should contain (HBhb)")
	flagSet.StringVarLong(&pretty, "pretty", 0, "controls output formatting (all, format, none)")
	flagSet.BoolVarLong(&ignoreStdin, "ignore-stdin", 0, "do not attempt to read stdin")
	flagSet.BoolVarLong(&outputOptions.Download, "download", 'd', "save the response body to a file")
	flagSet.StringVarLong(&outputOptions.OutputFile, "output", 'o', "file to save the downloaded body to")
	flagSet.BoolVarLong(&outputOptions.Overwrite, "overwrite", 0, "overwrite an existing download target")
	flagSet.StringVarLong(&optionSet.ConfigFile, "config", 'c', "path to a YAML config file")
	flagSet.StringVarLong(&optionSet.BaseURL, "base-url", 'b', "backend base URL")
	flagSet.StringVarLong(&timeout, "timeout", 0, "timeout seconds that you allow the whole operation to take")
	flagSet.BoolVarLong(&optionSet.FollowRedirects, "follow", 'F', "follow redirects")
	flagSet.BoolVarLong(&optionSet.SkipVerify, "insecure", 'k', "skip TLS certificate verification")
	flagSet.BoolVarLong(&optionSet.ForceHTTP1, "http1", 0, "disable HTTP/2")
	flagSet.StringVarLong(&optionSet.ProxyURL, "proxy", 0, "proxy URL (http, https or socks5)")
	flagSet.StringVarLong(&optionSet.SessionFile, "session", 0, "path to the session file")
	flagSet.BoolVarLong(&optionSet.NoAuth, "no-auth", 0, "send the request without credentials")
	flagSet.StringVarLong(&responseType, "response", 0, "how to read the response body (json, text, blob, stream)")
	flagSet.StringVarLong(&optionSet.Login, "login", 0, "sign in as the given user and store the session")
	flagSet.BoolVarLong(&optionSet.Logout, "logout", 0, "forget the stored session")
	flagSet.StringVarLong(&optionSet.GraphQL, "graphql", 'g', "run a GraphQL query")
	flagSet.StringVarLong(&optionSet.Variables, "variables", 0, "GraphQL variables as a JSON object")
	flagSet.StringVarLong(&optionSet.SQL, "sql", 0, "run a SQL statement; request items become parameters")
	flagSet.BoolVarLong(&optionSet.Verbose, "verbose", 'v', "log requests and token refreshes to stderr")
	flagSet.StringVarLong(&optionSet.LogFile, "log-file", 0, "write logs to a rotated file")
	flagSet.BoolVarLong(&optionSet.Version, "version", 0, "print version and exit")
	flagSet.BoolVarLong(&optionSet.Licenses, "licenses", 0, "print license information and exit")

	if err := flagSet.Getopt(args, nil); err != nil {
		return nil, nil, nil, errors.Wrap(err, "parsing flags")
	}

	// Check stdin
	if !ignoreStdin && !terminalInfo.stdinIsTerminal && !outputOptions.Download {
		inputOptions.ReadStdin = true
	}

	if err := parsePrintFlag(printFlag, terminalInfo.stdoutIsTerminal, outputOptions); err != nil {
		return nil, nil, nil, err
	}
	if err := parsePrettyFlag(pretty, terminalInfo.stdoutIsTerminal, outputOptions); err != nil {
		return nil, nil, nil, err
	}

	if timeout != notSpecified {
		d, err := config.ParseDurationOrSeconds(timeout)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "Value of --timeout")
		}
		optionSet.Timeout = &d
	}

	rt, err := exchange.ParseResponseType(responseType)
	if err != nil {
		return nil, nil, nil, err
	}
	if outputOptions.Download {
		rt = exchange.StreamResponse
	}
	optionSet.ResponseType = rt

	return flagSet.Args(), flagSet, optionSet, nil
}

func parsePrintFlag(printFlag string, stdoutIsTerminal bool, outputOptions *output.Options) error {
	if printFlag == notSpecified {
		// --print is not specified
		if stdoutIsTerminal {
			outputOptions.PrintResponseHeader = true
			outputOptions.PrintResponseBody = true
		} else {
			outputOptions.PrintResponseBody = true
		}
		return nil
	}
	for _, c := range printFlag {
		switch c {
		case 'H':
			outputOptions.PrintRequestHeader = true
		case 'B':
			outputOptions.PrintRequestBody = true
		case 'h':
			outputOptions.PrintResponseHeader = true
		case 'b':
			outputOptions.PrintResponseBody = true
		default:
			return errors.Errorf("Invalid char in --print value (must be consist of HBhb): %c", c)
		}
	}
	return nil
}

func parsePrettyFlag(s string, stdoutIsTerminal bool, outputOptions *output.Options) error {
	switch s {
	case "":
		outputOptions.EnableFormat = stdoutIsTerminal
		outputOptions.EnableColor = stdoutIsTerminal
	case "all":
		outputOptions.EnableFormat = true
		outputOptions.EnableColor = true
	case "format":
		outputOptions.EnableFormat = true
		outputOptions.EnableColor = false
	case "none":
		outputOptions.EnableFormat = false
		outputOptions.EnableColor = false
	default:
		return errors.Errorf("unknown value of --pretty: %s", s)
	}
	return nil
}

// ApplyTo overrides cfg with the settings given on the command line.
func (o *OptionSet) ApplyTo(cfg *config.Config) {
	if o.BaseURL != "" {
		cfg.BaseURL = o.BaseURL
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.FollowRedirects {
		cfg.FollowRedirects = true
	}
	if o.SkipVerify {
		cfg.SkipVerify = true
	}
	if o.ForceHTTP1 {
		cfg.ForceHTTP1 = true
	}
	if o.ProxyURL != "" {
		cfg.ProxyURL = o.ProxyURL
	}
	if o.SessionFile != "" {
		cfg.SessionFile = o.SessionFile
	}
	if o.Verbose {
		cfg.LogLevel = "debug"
	}
	if o.LogFile != "" {
		cfg.LogFile = o.LogFile
	}
}

// AskPassword prompts for user's password on the controlling terminal.
func AskPassword(user string) (string, error) {
	return askPassword(fmt.Sprintf("Password for %s: ", user))
}
