package library

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// licenseSecret keys the offline activation MAC. Licenses are advisory:
// validity is displayed in settings but never gates ledger operations.
var licenseSecret = []byte("school-library-offline-secret-v1")

// License is the signed blob an activation file carries.
type License struct {
	School string `json:"school"`
	MAC    string `json:"mac"`
}

// SignLicense issues a license for the named school.
func SignLicense(schoolName string) License {
	return License{School: schoolName, MAC: licenseMAC(schoolName)}
}

func licenseMAC(schoolName string) string {
	mac := hmac.New(sha256.New, licenseSecret)
	mac.Write([]byte(schoolName))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateLicense checks the blob against the expected school name. The
// MAC comparison is constant time.
func ValidateLicense(lic License, schoolName string) error {
	if lic.School != schoolName {
		return fmt.Errorf("license school name mismatch")
	}
	if !hmac.Equal([]byte(lic.MAC), []byte(licenseMAC(schoolName))) {
		return fmt.Errorf("license MAC invalid")
	}
	return nil
}

// ReadLicenseFile loads and parses a license JSON file.
func ReadLicenseFile(path string) (License, error) {
	var lic License
	data, err := os.ReadFile(path)
	if err != nil {
		return lic, fmt.Errorf("read license: %w", err)
	}
	if err := json.Unmarshal(data, &lic); err != nil {
		return lic, fmt.Errorf("parse license: %w", err)
	}
	return lic, nil
}

// WriteLicenseFile stores a license as JSON at path.
func WriteLicenseFile(path string, lic License) error {
	data, err := json.MarshalIndent(lic, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ValidateLicenseFile reads the file at path and checks it for the named
// school.
func ValidateLicenseFile(path, schoolName string) error {
	lic, err := ReadLicenseFile(path)
	if err != nil {
		return err
	}
	return ValidateLicense(lic, schoolName)
}
