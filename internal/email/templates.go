package email

import (
	"bytes"
	"html/template"
)

var baseLayout = template.Must(template.New("base").Parse(`<!DOCTYPE html>
<html>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
        <tr><td style="color:#1f2933;font-size:15px;line-height:1.6;">{{.Body}}</td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`))

type layoutData struct {
	Body template.HTML
}

// RenderLayout wraps pre-built HTML content in the shared email shell. The
// content comes from the script package, which is trusted output, not user
// input.
func RenderLayout(body string) string {
	var buf bytes.Buffer
	if err := baseLayout.Execute(&buf, layoutData{Body: template.HTML(body)}); err != nil {
		return body
	}
	return buf.String()
}
