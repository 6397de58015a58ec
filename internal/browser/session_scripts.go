// internal/browser/session_scripts.go
package browser

import "github.com/xkilldash9x/pathfinder-autofill/internal/selector"

const refAttr = selector.RefAttr

// findByLabelJS resolves a <label> containing the text (case-insensitive)
// through its "for" attribute. Returns a selector for the field or null.
const findByLabelJS = `(() => {
  const needle = %s.toLowerCase();
  for (const label of document.querySelectorAll('label[for]')) {
    if (!(label.textContent || '').toLowerCase().includes(needle)) continue;
    const id = label.getAttribute('for');
    if (id && document.getElementById(id)) return '[id="' + CSS.escape(id) + '"]';
  }
  return null;
})()`

// countVisibleJS counts matches that have a layout box and are not hidden by style.
const countVisibleJS = `Array.from(document.querySelectorAll(%s)).filter((el) => {
  const rect = el.getBoundingClientRect();
  if (rect.width === 0 && rect.height === 0) return false;
  const style = getComputedStyle(el);
  return style.visibility !== 'hidden' && style.display !== 'none';
}).length`

// findByTextJS finds the first visible element matching the tag selector whose
// text contains the needle (case-insensitive), tags it with a ref attribute,
// and returns a selector addressing it, or null.
const findByTextJS = `(() => {
  const tagSelector = %s, needle = %s.toLowerCase(), attr = %s;
  let n = Number(document.documentElement.getAttribute(attr + '-seq') || 0);
  for (const el of document.querySelectorAll(tagSelector)) {
    const text = (el.innerText || el.textContent || '').toLowerCase();
    if (!text.includes(needle)) continue;
    const rect = el.getBoundingClientRect();
    if (rect.width === 0 && rect.height === 0) continue;
    let ref = el.getAttribute(attr);
    if (!ref) {
      n += 1;
      ref = String(n);
      el.setAttribute(attr, ref);
      document.documentElement.setAttribute(attr + '-seq', ref);
    }
    return '[' + attr + '="' + ref + '"]';
  }
  return null;
})()`
