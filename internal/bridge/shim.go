// Package bridge renders pages into sandboxed preview frames and relays what
// those frames report back to the host.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xiaot623/pagesmith/internal/domain"
)

// HighlightAttr marks elements picked by a Highlighter.
const HighlightAttr = "data-pagesmith-highlight"

var shimTemplate = template.Must(template.New("shim").Funcs(template.FuncMap{
	"js": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}).Parse(`(function () {
  var frameId = {{js .FrameID}}, token = {{js .Token}}, endpoint = {{js .Endpoint}};
  function send(type, level, content) {
    var msg = {frameId: frameId, token: token, type: type, data: {level: level, content: content}};
    try { window.parent.postMessage(msg, '*'); } catch (e) {}
    if (endpoint) {
      try {
        fetch(endpoint, {method: 'POST', mode: 'no-cors', keepalive: true,
          headers: {'Content-Type': 'text/plain'}, body: JSON.stringify(msg)});
      } catch (e) {}
    }
  }
  function format(args) {
    return Array.prototype.map.call(args, function (a) {
      try { return typeof a === 'string' ? a : JSON.stringify(a); } catch (e) { return String(a); }
    }).join(' ');
  }
  ['log', 'info', 'warn', 'error'].forEach(function (level) {
    var original = console[level];
    console[level] = function () {
      original.apply(console, arguments);
      send('console', level, format(arguments));
    };
  });
  window.addEventListener('error', function (event) {
    send('console', 'error', 'Uncaught error: ' + event.message + ' at ' + event.filename + ':' + event.lineno);
  });
  document.addEventListener('click', function (e) {
    var a = e.target && e.target.closest ? e.target.closest('a') : null;
    if (a && a.href && !a.hasAttribute('target')) {
      e.preventDefault();
      send('navigation', 'info', 'Navigation prevented for: ' + a.href);
    }
  }, true);
  document.addEventListener('submit', function (e) {
    e.preventDefault();
    send('form', 'info', 'Form submission prevented' + (e.target && e.target.action ? ': ' + e.target.action : ''));
  }, true);
  ['pushState', 'replaceState'].forEach(function (name) {
    var original = history[name];
    history[name] = function () {
      send('history', 'info', 'History ' + name + ' called');
      return original.apply(this, arguments);
    };
  });
})();`))

var highlightTemplate = template.Must(template.New("highlight").Parse(`(function () {
  setTimeout(function () {
    document.querySelectorAll('[{{.Attr}}]').forEach(function (el) { el.removeAttribute('{{.Attr}}'); });
  }, {{.Millis}});
})();`))

// highlightStyle is a format string; %d is the duration in milliseconds.
const highlightStyle = `@keyframes pagesmithHighlight {
  0%% { outline: 2px solid transparent; }
  25%% { outline: 2px solid #2563eb; }
  75%% { outline: 2px solid #2563eb; }
  100%% { outline: 2px solid transparent; }
}
[` + HighlightAttr + `] { animation: pagesmithHighlight %dms ease-in-out; }`

// Instrumenter prepares documents for a preview frame.
type Instrumenter struct {
	// Endpoint receives bridge messages in addition to the parent window.
	// Empty disables it.
	Endpoint string
	// Highlighter marks elements related to a change request. Nil disables
	// highlighting.
	Highlighter Highlighter
	// HighlightDuration is how long marked elements stay highlighted.
	HighlightDuration time.Duration
}

// Instrument returns doc with the bridge shim as the first script of its
// head. When highlightPrompt is set, elements it mentions are marked for a
// timed highlight. It reports how many elements were marked.
func (in *Instrumenter) Instrument(doc domain.Document, frame *domain.Frame, highlightPrompt string) (string, int, error) {
	root, err := html.Parse(strings.NewReader(doc.String()))
	if err != nil {
		return "", 0, fmt.Errorf("failed to parse document: %w", err)
	}
	head, body := findElement(root, atom.Head), findElement(root, atom.Body)
	if head == nil || body == nil {
		return "", 0, fmt.Errorf("document has no head or body")
	}

	marked := 0
	if highlightPrompt != "" && in.Highlighter != nil {
		marked = in.Highlighter.Mark(root, highlightPrompt)
	}

	var shim bytes.Buffer
	err = shimTemplate.Execute(&shim, map[string]string{
		"FrameID":  frame.ID,
		"Token":    frame.Token,
		"Endpoint": in.Endpoint,
	})
	if err != nil {
		return "", 0, err
	}
	head.InsertBefore(scriptNode(shim.String()), head.FirstChild)

	if marked > 0 {
		duration := in.HighlightDuration
		if duration <= 0 {
			duration = 2 * time.Second
		}
		head.AppendChild(elementWithText(atom.Style, fmt.Sprintf(highlightStyle, duration.Milliseconds())))

		var timer bytes.Buffer
		err = highlightTemplate.Execute(&timer, map[string]interface{}{
			"Attr":   HighlightAttr,
			"Millis": duration.Milliseconds(),
		})
		if err != nil {
			return "", 0, err
		}
		body.AppendChild(scriptNode(timer.String()))
	}

	var out bytes.Buffer
	if err := html.Render(&out, root); err != nil {
		return "", 0, err
	}
	return out.String(), marked, nil
}

func scriptNode(src string) *html.Node {
	n := elementWithText(atom.Script, src)
	n.Attr = []html.Attribute{{Key: "data-pagesmith", Val: "bridge"}}
	return n
}

func elementWithText(a atom.Atom, text string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
