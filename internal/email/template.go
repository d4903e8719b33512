package email

import "fmt"

// verificationMessage renders the subject, HTML body and plain-text body
// of the verification mail.
func verificationMessage(name, link string) (subject, html, text string) {
	subject = "Verify Your ProductivityHub Account"

	html = fmt.Sprintf(`<div style="max-width:600px;margin:0 auto;font-family:Arial,sans-serif">
  <div style="background-color:#f8f9fa;padding:20px;text-align:center">
    <h1 style="color:#007AFF;margin:0">ProductivityHub</h1>
  </div>
  <div style="padding:20px">
    <h2>Welcome, %s!</h2>
    <p>Thanks for registering for ProductivityHub. Please verify your email address to complete your account setup.</p>
    <div style="text-align:center;margin:30px 0">
      <a href="%s" style="background-color:#007AFF;color:white;padding:12px 30px;text-decoration:none;border-radius:8px;display:inline-block">Verify Email Address</a>
    </div>
    <p style="color:#666;font-size:14px">Or copy and paste this link into your browser:</p>
    <p style="word-break:break-all;color:#007AFF;font-size:14px">%s</p>
    <p style="color:#666;font-size:12px;margin-top:30px">This link will expire in 24 hours. If you didn't create an account, please ignore this email.</p>
  </div>
</div>`, name, link, link)

	text = fmt.Sprintf(`Welcome to ProductivityHub, %s!

Thanks for registering. Please verify your email address by visiting:
%s

This link will expire in 24 hours.

If you didn't create an account, please ignore this email.
`, name, link)

	return subject, html, text
}
