package version

import (
	"fmt"
	"io"
)

type License struct {
	ModuleName  string
	LicenseName string
	Link        string
}

var Licenses = []License{
	{
		ModuleName:  "dashreq",
		LicenseName: "MIT License",
		Link:        "https://github.com/nojima/dashreq/blob/master/LICENSE",
	},
	{
		ModuleName:  "Go",
		LicenseName: "BSD License",
		Link:        "https://golang.org/LICENSE",
	},
	{
		ModuleName:  "aurora",
		LicenseName: "WTFPL",
		Link:        "https://github.com/logrusorgru/aurora/blob/master/LICENSE",
	},
	{
		ModuleName:  "go-isatty",
		LicenseName: "MIT License",
		Link:        "https://github.com/mattn/go-isatty/blob/master/LICENSE",
	},
	{
		ModuleName:  "getopt",
		LicenseName: "BSD License",
		Link:        "https://github.com/pborman/getopt/blob/master/LICENSE",
	},
	{
		ModuleName:  "errors",
		LicenseName: "BSD License",
		Link:        "https://github.com/pkg/errors/blob/master/LICENSE",
	},
	{
		ModuleName:  "bytefmt",
		LicenseName: "Apache License",
		Link:        "https://github.com/cloudfoundry/bytefmt/blob/master/LICENSE",
	},
	{
		ModuleName:  "brotli",
		LicenseName: "MIT License",
		Link:        "https://github.com/andybalholm/brotli/blob/master/LICENSE",
	},
	{
		ModuleName:  "compress",
		LicenseName: "BSD License",
		Link:        "https://github.com/klauspost/compress/blob/master/LICENSE",
	},
	{
		ModuleName:  "sonic",
		LicenseName: "Apache License",
		Link:        "https://github.com/bytedance/sonic/blob/main/LICENSE",
	},
	{
		ModuleName:  "fsnotify",
		LicenseName: "BSD License",
		Link:        "https://github.com/fsnotify/fsnotify/blob/main/LICENSE",
	},
	{
		ModuleName:  "jwt",
		LicenseName: "MIT License",
		Link:        "https://github.com/golang-jwt/jwt/blob/main/LICENSE",
	},
	{
		ModuleName:  "uuid",
		LicenseName: "BSD License",
		Link:        "https://github.com/google/uuid/blob/master/LICENSE",
	},
	{
		ModuleName:  "godotenv",
		LicenseName: "MIT License",
		Link:        "https://github.com/joho/godotenv/blob/main/LICENCE",
	},
	{
		ModuleName:  "androiddnsfix",
		LicenseName: "MIT License",
		Link:        "https://github.com/mtibben/androiddnsfix/blob/master/LICENSE",
	},
	{
		ModuleName:  "gjson",
		LicenseName: "MIT License",
		Link:        "https://github.com/tidwall/gjson/blob/master/LICENSE",
	},
	{
		ModuleName:  "sjson",
		LicenseName: "MIT License",
		Link:        "https://github.com/tidwall/sjson/blob/master/LICENSE",
	},
	{
		ModuleName:  "pretty",
		LicenseName: "MIT License",
		Link:        "https://github.com/tidwall/pretty/blob/master/LICENSE",
	},
	{
		ModuleName:  "lumberjack",
		LicenseName: "MIT License",
		Link:        "https://github.com/natefinch/lumberjack/blob/v2.0/LICENSE",
	},
	{
		ModuleName:  "yaml",
		LicenseName: "Apache License",
		Link:        "https://github.com/go-yaml/yaml/blob/v3/LICENSE",
	},
	{
		ModuleName:  "golang.org/x",
		LicenseName: "BSD License",
		Link:        "https://cs.opensource.google/go/x/net/+/master:LICENSE",
	},
}

func PrintLicenses(w io.Writer) {
	for _, license := range Licenses {
		fmt.Fprintf(w, "%s:\n  %s\n  %s\n\n",
			license.ModuleName,
			license.LicenseName,
			license.Link,
		)
	}
}
