package twofactor

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// period is the TOTP time step in seconds (RFC 6238 default).
const period = 30

// Secret holds a freshly generated TOTP secret and its provisioning URI
// (otpauth://), ready to be rendered as a QR code for authenticator apps.
type Secret struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// Manager generates TOTP secrets and verifies codes.
type Manager struct {
	issuer string
	skew   uint
}

// NewManager creates a TOTP manager. The issuer appears as the account label
// prefix in authenticator apps. Skew is the number of adjacent 30-second
// windows accepted on either side of the current one.
func NewManager(issuer string, skew uint) *Manager {
	return &Manager{issuer: issuer, skew: skew}
}

// Generate creates a new random secret bound to the given account email.
func (m *Manager) Generate(accountEmail string) (*Secret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: accountEmail,
		Period:      period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	return &Secret{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// Verify reports whether the code is valid for the secret within the
// configured skew.
func (m *Manager) Verify(secret, code string) bool {
	return m.verifyAt(secret, code, time.Now().UTC())
}

func (m *Manager) verifyAt(secret, code string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totp.ValidateOpts{
		Period:    period,
		Skew:      m.skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// ProvisioningURI rebuilds the otpauth:// URI for an already stored secret,
// matching the format produced by Generate.
func (m *Manager) ProvisioningURI(secret, accountEmail string) string {
	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", m.issuer)
	v.Set("period", strconv.Itoa(period))
	v.Set("algorithm", otp.AlgorithmSHA1.String())
	v.Set("digits", otp.DigitsSix.String())

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + m.issuer + ":" + accountEmail,
		RawQuery: v.Encode(),
	}
	return u.String()
}

// QRCode renders the provisioning URI as a PNG of the given pixel size.
func (m *Manager) QRCode(provisioningURI string, size int) ([]byte, error) {
	png, err := qrcode.Encode(provisioningURI, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
