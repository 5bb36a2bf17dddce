package utils

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// SendMail delivers a single HTML mail best-effort over SMTP. There is no
// retry; the caller only learns whether the handoff succeeded.
// Env: SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASSWORD, SMTP_FROM
func SendMail(to, subject, html string) (bool, error) {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = user
	}

	if host == "" || user == "" {
		log.Println("mail: SMTP not configured, skipping send to", to)
		return false, nil
	}
	if port == "" {
		port = "587"
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s\r\n",
		from, to, subject, html))

	auth := smtp.PlainAuth("", user, password, host)
	if err := smtp.SendMail(host+":"+port, auth, from, []string{to}, msg); err != nil {
		log.Println("mail: send failed:", err)
		return false, err
	}
	return true, nil
}
