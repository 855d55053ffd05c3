// Package markup renders the self-submitting HTML fragment that delivers an
// embed token into a sandboxed iframe. Rendering never fails: an invalid
// token degrades to a placeholder fragment so the output sink always receives
// something displayable.
package markup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"glanceboard.app/embedgate/common/logger"
	"glanceboard.app/embedgate/core/config"
)

const frameName = "embedgate-frame"

// errorFragment is written when no usable token is available. It deliberately
// contains no form or script.
const errorFragment = `<div class="embedgate-error">The embedded dashboard could not be loaded.</div>`

// Generator renders embed markup for the single embed surface this process
// serves. The target URL is fixed at construction from config.
type Generator struct {
	embedURL string
}

func NewGenerator(embed config.EmbedConfig) *Generator {
	path := "pages"
	if embed.EmbedType == config.EmbedTypeCard {
		path = "cards"
	}
	return &Generator{
		embedURL: fmt.Sprintf("%s/embed/%s/%s", embed.EmbedBaseURL, path, embed.EmbedID),
	}
}

// Render produces the iframe plus an inline script that, once the document is
// ready, builds a hidden POST form targeting the frame, submits it, and
// removes it shortly after. A token that is blank after trimming yields the
// placeholder error fragment instead.
func (g *Generator) Render(ctx context.Context, embedToken string) string {
	if strings.TrimSpace(embedToken) == "" {
		slog.WarnContext(logger.WithLogFields(ctx, logger.LogFields{Component: "embedgate.markup"}),
			"blank embed token, rendering error fragment")
		return errorFragment
	}

	// The token is interpolated into a single-quoted JS string literal. It
	// comes from a trusted provider response, but it is escaped as untrusted
	// text anyway so a hostile value cannot break out of the literal.
	escaped := EscapeScriptLiteral(embedToken)

	var b strings.Builder
	b.WriteString(`<iframe id="` + frameName + `" name="` + frameName + `" src="about:blank" sandbox="allow-scripts allow-forms allow-same-origin" style="width:100%;height:100vh;border:none;"></iframe>`)
	b.WriteString("\n<script>\n")
	b.WriteString("(function() {\n")
	b.WriteString("  var submitEmbed = function() {\n")
	b.WriteString("    var form = document.createElement('form');\n")
	b.WriteString("    form.method = 'POST';\n")
	b.WriteString("    form.action = '" + g.embedURL + "';\n")
	b.WriteString("    form.target = '" + frameName + "';\n")
	b.WriteString("    var field = document.createElement('input');\n")
	b.WriteString("    field.type = 'hidden';\n")
	b.WriteString("    field.name = 'embedToken';\n")
	b.WriteString("    field.value = '" + escaped + "';\n")
	b.WriteString("    form.appendChild(field);\n")
	b.WriteString("    document.body.appendChild(form);\n")
	b.WriteString("    form.submit();\n")
	b.WriteString("    setTimeout(function() { form.parentNode.removeChild(form); }, 1000);\n")
	b.WriteString("  };\n")
	b.WriteString("  if (document.readyState === 'loading') {\n")
	b.WriteString("    document.addEventListener('DOMContentLoaded', submitEmbed);\n")
	b.WriteString("  } else {\n")
	b.WriteString("    submitEmbed();\n")
	b.WriteString("  }\n")
	b.WriteString("})();\n")
	b.WriteString("</script>")
	return b.String()
}

// escapeReplacer escapes a value for inclusion inside a single-quoted JS
// string literal. Backslash first so later escapes aren't doubled; "<" is
// hex-escaped so a value containing "</script>" cannot terminate the
// surrounding script element.
var escapeReplacer = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"<", `\x3c`,
)

// EscapeScriptLiteral makes an arbitrary string safe to place inside a
// single-quoted script string literal.
func EscapeScriptLiteral(s string) string {
	return escapeReplacer.Replace(s)
}
