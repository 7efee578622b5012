package pages

import "html/template"

const stylesCSS = `
.tc-panel{font-family:sans-serif;margin:12px auto;max-width:1024px;display:flex;gap:24px;flex-wrap:wrap}
.tc-panel button{padding:6px 14px;border:1px solid #4bc0c0;background:#fff;border-radius:4px;cursor:pointer}
.tc-panel button:hover{background:#e8f7f7}
.tc-empty{font-family:sans-serif;text-align:center;color:#666;padding:48px 0}
.tc-notes{font-family:sans-serif;margin:12px auto;max-width:1024px;color:#333}
#tc-toast{position:fixed;right:16px;bottom:16px;background:#333;color:#fff;padding:10px 16px;border-radius:4px;white-space:pre-line;font-family:sans-serif;display:none}
`

var controlsTemplate = template.Must(template.New("controls").Parse(`<style>{{.CSS}}</style>
<div class="tc-panel" data-view="{{.ViewID}}">
	<div class="controls">
		{{range .Timeframes}}<button type="button" data-timeframe="{{.Value}}">{{.Label}}</button>
		{{end}}
	</div>
	<div class="export-controls">
		<button type="button" data-format="png">Export as PNG</button>
		<button type="button" data-format="jpg">Export as JPG</button>
	</div>
</div>
{{if .Empty}}<div class="tc-empty">{{.EmptyMessage}}</div>{{end}}
{{if .Notes}}<div class="tc-notes">{{.Notes}}</div>{{end}}
<div id="tc-toast" role="status"></div>
`))

var scriptTemplate = template.Must(template.New("script").Parse(`<script>
(function () {
	var viewID = {{.ViewID}};
	var chartID = {{.ChartID}};
	var base = '/views/' + encodeURIComponent(viewID);

	function chart() {
		var el = document.getElementById(chartID);
		return el && window.echarts ? window.echarts.getInstanceByDom(el) : null;
	}

	function toast(msg) {
		var el = document.getElementById('tc-toast');
		el.textContent = msg;
		el.style.display = 'block';
		clearTimeout(el._timer);
		el._timer = setTimeout(function () { el.style.display = 'none'; }, 4000);
	}

	function applyAxis(option) {
		var c = chart();
		if (c && option) { c.setOption(option); }
	}

	function visibleWindow() {
		var c = chart();
		if (!c) { return ''; }
		var dz = (c.getOption().dataZoom || [])[0];
		if (!dz || dz.startValue == null || dz.endValue == null) { return ''; }
		return '&from=' + Math.round(dz.startValue) + '&to=' + Math.round(dz.endValue);
	}

	applyAxis({{.Axis}});

	document.querySelectorAll('[data-timeframe]').forEach(function (btn) {
		btn.addEventListener('click', function () {
			fetch(base + '/timeframe/' + btn.dataset.timeframe, { method: 'POST' })
				.then(function (r) { return r.json(); })
				.then(function (d) { applyAxis(d.option); })
				.catch(function () {});
		});
	});

	document.querySelectorAll('[data-format]').forEach(function (btn) {
		btn.addEventListener('click', function () {
			var format = btn.dataset.format;
			fetch(base + '/export?format=' + format + visibleWindow())
				.then(function (r) { return r.status === 200 ? r.blob() : null; })
				.then(function (blob) {
					if (!blob) { return; }
					var link = document.createElement('a');
					link.href = URL.createObjectURL(blob);
					link.download = 'chart.' + format;
					link.click();
					setTimeout(function () { URL.revokeObjectURL(link.href); }, 1000);
				})
				.catch(function () {});
		});
	});

	var c = chart();
	if (c) {
		c.on('click', function (p) {
			fetch(base + '/points/' + p.dataIndex)
				.then(function (r) { return r.ok ? r.json() : null; })
				.then(function (d) { if (d) { toast(d.message); } })
				.catch(function () {});
		});
	}

	window.addEventListener('pagehide', function () {
		if (navigator.sendBeacon) { navigator.sendBeacon(base + '/close'); }
	});
})();
</script>
`))

var emptyPageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Title}}</title>
</head>
<body>
</body>
</html>
`))
