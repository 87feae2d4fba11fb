package modal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"text/template"
)

// ModuleName is the import specifier scripts use to pull in the runtime.
const ModuleName = "sitepack:modal"

var scriptTemplate = template.Must(template.New("modal").Parse(`const ROOT_CLASSES = {{ .RootClasses }};
const OPEN_CLASS = {{ .Open }};
const IN_CLASS = {{ .In }};
const CONTAINER_SELECTOR = {{ .Container }};
const TRIGGER_SELECTOR = {{ .Trigger }};
const TRIGGER_ATTRIBUTE = {{ .Attribute }};
const CLOSE_SELECTOR = {{ .Close }};
const REVEAL_DELAY = {{ .Delay }};

const pending = new Map();

export function open(id) {
  const el = document.getElementById(id);
  if (!el || pending.has(id) || el.classList.contains(OPEN_CLASS)) {
    return false;
  }
  document.body.classList.add(...ROOT_CLASSES);
  el.classList.add(OPEN_CLASS);
  pending.set(id, setTimeout(() => {
    pending.delete(id);
    el.classList.add(IN_CLASS);
  }, REVEAL_DELAY));
  return true;
}

export function close() {
  pending.forEach((timer) => clearTimeout(timer));
  pending.clear();
  document.body.classList.remove(...ROOT_CLASSES);
  document.querySelectorAll(CONTAINER_SELECTOR).forEach((el) => {
    el.classList.remove(OPEN_CLASS, IN_CLASS);
  });
}

export function install(root = document) {
  root.addEventListener("click", (event) => {
    const target = event.target instanceof Element ? event.target : null;
    if (!target) {
      return;
    }
    const trigger = target.closest(TRIGGER_SELECTOR);
    if (trigger) {
      event.preventDefault();
      open(trigger.getAttribute(TRIGGER_ATTRIBUTE));
      return;
    }
    if (target.closest(CLOSE_SELECTOR)) {
      close();
    }
  });
}

if (document.readyState === "loading") {
  document.addEventListener("DOMContentLoaded", () => install());
} else {
  install();
}
`))

// Script renders the browser runtime as an ES module exporting open, close
// and install. Importing it installs the click handlers.
func Script() string {
	q := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}
	roots, _ := json.Marshal(RootClasses)

	var buf bytes.Buffer
	_ = scriptTemplate.Execute(&buf, map[string]string{
		"RootClasses": string(roots),
		"Open":        q(OpenClass),
		"In":          q(InClass),
		"Container":   q("." + ContainerClass),
		"Trigger":     q(TriggerSelector),
		"Attribute":   q(TriggerAttribute),
		"Close":       q(CloseSelector),
		"Delay":       strconv.FormatInt(RevealDelay.Milliseconds(), 10),
	})
	return buf.String()
}
