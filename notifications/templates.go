package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var baseTemplate = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <style>
    body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0; background-color: #f4f4f4; }
    .email-container { max-width: 600px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; }
    .header { background: #1a1a1a; color: #ffffff; padding: 30px 20px; text-align: center; }
    .content { padding: 40px 30px; }
    .order-summary { background: #f8f9fa; border-radius: 6px; padding: 20px; margin: 20px 0; border: 1px solid #e9ecef; }
    .order-row { display: flex; justify-content: space-between; padding: 10px 0; border-bottom: 1px solid #e9ecef; }
    .total-row { border-top: 2px solid #1a1a1a; margin-top: 10px; padding-top: 15px; font-weight: bold; }
    .footer { background: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #888; }
  </style>
</head>
<body>
  <div class="email-container">
    <div class="header"><h1>{{.Title}}</h1></div>
    <div class="content">{{.Body}}</div>
    <div class="footer">
      <p>&copy; {{.Year}} Commerce API. All rights reserved.</p>
      <p>If you have any questions, please contact our support team.</p>
    </div>
  </div>
</body>
</html>`))

type templateData struct {
	Title string
	Body  template.HTML
	Year  int
}

func renderEmail(title string, body string) (string, error) {
	var buf bytes.Buffer
	err := baseTemplate.Execute(&buf, templateData{
		Title: title,
		Body:  template.HTML(body),
		Year:  time.Now().Year(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

type orderLine struct {
	Name     string
	Quantity int
	Subtotal float64
}

func orderItemsHTML(lines []orderLine, total float64) string {
	var buf bytes.Buffer
	buf.WriteString(`<div class="order-summary">`)
	for _, l := range lines {
		fmt.Fprintf(&buf, `<div class="order-row"><span>%s (x%d)</span><span>$%.2f</span></div>`,
			template.HTMLEscapeString(l.Name), l.Quantity, l.Subtotal)
	}
	fmt.Fprintf(&buf, `<div class="order-row total-row"><span>Total</span><span>$%.2f</span></div>`, total)
	buf.WriteString(`</div>`)
	return buf.String()
}
