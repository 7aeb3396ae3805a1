package headless

import (
	"encoding/json"
	"fmt"
	"strings"
)

const visibleTextScript = `document.body ? document.body.innerText : ""`

const anchorsScript = `Array.from(document.querySelectorAll("a")).map(a => ({
	href: a.getAttribute("href") || "",
	text: a.innerText || ""
}))`

type anchorJSON struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// clickTemplate finds buttons, links and role=button elements whose text
// contains the lowercased needle and clicks the first one.
const clickTemplate = `(() => {
	const needle = %s;
	const upper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ";
	const lower = "abcdefghijklmnopqrstuvwxyz";
	const xpath = "//*[self::button or self::a or @role='button']" +
		"[contains(translate(normalize-space(.), '" + upper + "', '" + lower + "'), " + needle + ")]";
	const hit = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!hit) {
		return false;
	}
	hit.click();
	return true;
})()`

// clickScript embeds pattern as an XPath string literal inside a JS string.
func clickScript(pattern string) (string, error) {
	needle := strings.ToLower(pattern)
	if strings.Contains(needle, "'") {
		return "", fmt.Errorf("click pattern %q must not contain single quotes", pattern)
	}
	literal, err := json.Marshal("'" + needle + "'")
	if err != nil {
		return "", fmt.Errorf("encode click pattern: %w", err)
	}
	return fmt.Sprintf(clickTemplate, literal), nil
}
