package capture

// disableAnimationsScript is registered with
// Page.addScriptToEvaluateOnNewDocument so it runs before the page's
// first paint. It forces transitions and animations to zero duration,
// preventing nondeterministic mid-animation screenshots.
const disableAnimationsScript = `(() => {
	const css = '*, *::before, *::after {' +
		' transition: none !important;' +
		' animation: none !important;' +
		' scroll-behavior: auto !important;' +
		' caret-color: transparent !important;' +
		'}';
	const inject = () => {
		const style = document.createElement('style');
		style.setAttribute('data-capture-override', '');
		style.textContent = css;
		document.documentElement.appendChild(style);
	};
	if (document.documentElement) {
		inject();
	} else {
		document.addEventListener('DOMContentLoaded', inject);
	}
})();`

// collectTextNodesScript walks the DOM and returns every text-bearing
// leaf element (direct, non-whitespace text content) with its absolute
// bounding box and the computed style properties used for comparison.
// Script, style and hidden elements are skipped.
const collectTextNodesScript = `(() => {
	const props = [
		'font-family', 'font-size', 'font-weight', 'color',
		'line-height', 'text-align', 'background-color', 'letter-spacing',
		'text-decoration-line',
	];
	const skipTags = new Set(['SCRIPT', 'STYLE', 'NOSCRIPT', 'TEMPLATE', 'HEAD', 'META', 'LINK', 'TITLE']);
	const results = [];
	const elements = document.body ? document.body.querySelectorAll('*') : [];
	for (const el of elements) {
		if (skipTags.has(el.tagName)) continue;

		let direct = '';
		for (const child of el.childNodes) {
			if (child.nodeType === Node.TEXT_NODE) direct += child.textContent;
		}
		direct = direct.replace(/\s+/g, ' ').trim();
		if (!direct) continue;

		const cs = window.getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden' || parseFloat(cs.opacity) === 0) continue;

		const rect = el.getBoundingClientRect();
		if (rect.width === 0 && rect.height === 0) continue;

		const computed = {};
		for (const p of props) computed[p] = cs.getPropertyValue(p);

		const tag = el.tagName.toLowerCase();
		const classes = (typeof el.className === 'string' && el.className)
			? '.' + el.className.trim().split(/\s+/).slice(0, 3).join('.')
			: '';

		results.push({
			text: direct,
			selector: tag + classes,
			rect: {
				x: rect.x + window.scrollX,
				y: rect.y + window.scrollY,
				width: rect.width,
				height: rect.height,
			},
			computed: computed,
		});
	}
	return results;
})()`
