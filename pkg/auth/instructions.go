package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteSessionGuide prints how to copy the sessionid cookie from a
// logged-in browser
func WriteSessionGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"🍪 IMPORTING YOUR INSTAGRAM SESSION",
		rule,
		"",
		"1. Log in at https://www.instagram.com in a desktop browser",
		"2. Open Developer Tools (F12, or Cmd+Option+I on Mac)",
		"3. Chrome/Edge: Application → Cookies → https://www.instagram.com",
		"   Firefox:     Storage → Cookies → https://www.instagram.com",
		"4. Copy the value of the 'sessionid' cookie",
		"",
		"   It looks like 12345678%3AAbCdEf123%3A27 and starts with your",
		"   numeric user id. Paste it as is; it is URL-decoded for you.",
		"",
		"⚠️  The cookie grants full access to the account. It is stored in",
		"   the OS keychain or an encrypted file, never in plain text.",
		rule,
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}
