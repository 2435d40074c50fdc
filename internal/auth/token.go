package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// tokenPeriod is the TOTP step of the authenticator.
const tokenPeriod = 30

// validToken reports whether code is the current TOTP of secret, allowing
// skew periods either side. The client sends the code as a decimal number,
// so leading zeros may be missing.
func validToken(secret, code string, now time.Time, skew uint) bool {
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 {
		return false
	}

	ok, err := totp.ValidateCustom(fmt.Sprintf("%06d", n), secret, now.UTC(), totp.ValidateOpts{
		Period:    tokenPeriod,
		Skew:      skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
