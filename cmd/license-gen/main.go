package main

import (
	"flag"
	"fmt"
	"os"

	"school-library/library"
)

// license-gen issues a signed offline activation file for one school.
// Hand the resulting JSON to the school; they load it from the settings
// page.
func main() {
	school := flag.String("school", "", "exact school name the license is issued for")
	out := flag.String("out", "license.json", "output path for the license file")
	flag.Parse()

	if *school == "" {
		fmt.Fprintln(os.Stderr, "usage: license-gen -school <name> [-out license.json]")
		os.Exit(2)
	}

	lic := library.SignLicense(*school)
	if err := library.WriteLicenseFile(*out, lic); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing license: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("License for '%s' written to %s\n", *school, *out)
}
