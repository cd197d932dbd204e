package cli

import (
	"flag"
	"fmt"
	"strings"

	"streamshell/internal/inject"
)

func runScript(args []string) error {
	fs := flag.NewFlagSet("script", flag.ContinueOnError)
	binding := fs.String("binding", inject.DefaultBinding, "page binding name the script reports through")
	endpoint := fs.String("endpoint", "", "HTTP bridge endpoint used when the binding is absent")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	if e := strings.TrimSpace(*endpoint); e != "" {
		fmt.Print(inject.ScriptWithEndpoint(strings.TrimSpace(*binding), e))
		return nil
	}
	fmt.Print(inject.Script(strings.TrimSpace(*binding)))
	return nil
}
