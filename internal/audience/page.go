package audience

import (
	"html/template"
	"io"
)

// PageData fills the audience and presenter pages.
type PageData struct {
	Title          string
	PresentationID string
	ViewURL        string
	// RelayURL is the websocket path of the relay channel to follow.
	RelayURL string

	// The presenter page also needs the session's control key and slide
	// position.
	ControlKey   string
	CurrentSlide int
	TotalSlides  int
}

var audiencePage = template.Must(template.New("audience").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Title}}{{.Title}} - {{end}}Audience View</title>
<style>
html, body { margin: 0; height: 100%; background: #000; color: #fff; font-family: sans-serif; }
iframe { border: 0; width: 100%; height: 100%; }
.missing { display: flex; align-items: center; justify-content: center; height: 100%; }
</style>
</head>
<body>
{{if .ViewURL}}
<iframe id="viewer" src="{{.ViewURL}}" sandbox="allow-scripts allow-same-origin allow-popups" allowfullscreen></iframe>
<script>
(function () {
  var relay = {{.RelayURL}};
  var viewer = document.getElementById("viewer");
  var currentSlide = 1;

  document.documentElement.requestFullscreen && document.documentElement.requestFullscreen().catch(function (err) {
    console.warn("fullscreen request refused", err);
  });

  if (!relay) { return; }
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + relay);
  ws.onmessage = function (event) {
    var msg;
    try { msg = JSON.parse(event.data); } catch (e) { return; }
    if (!msg || msg.type !== "GOTO_SLIDE") { return; }
    currentSlide = msg.slideNumber;
    if (msg.url) { viewer.src = msg.url; }
  };
})();
</script>
{{else}}
<div class="missing">No presentation URL provided</div>
{{end}}
</body>
</html>
`))

var presenterPage = template.Must(template.New("presenter").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Title}}{{.Title}} - {{end}}Presenter</title>
<style>
html, body { margin: 0; height: 100%; font-family: sans-serif; }
main { display: flex; flex-direction: column; height: 100%; }
iframe { border: 0; flex: 1; }
nav { display: flex; gap: 8px; padding: 8px; background: #222; color: #fff; align-items: center; }
</style>
</head>
<body>
<main>
<nav>
  <button id="prev"{{if le .CurrentSlide 1}} disabled{{end}}>Previous</button>
  <span><span id="slide">{{.CurrentSlide}}</span> / <span id="total">{{.TotalSlides}}</span></span>
  <button id="next"{{if ge .CurrentSlide .TotalSlides}} disabled{{end}}>Next</button>
  <button id="audience">Open audience view</button>
</nav>
<iframe id="viewer" src="{{.ViewURL}}" allowfullscreen></iframe>
</main>
<script>
(function () {
  var id = {{.PresentationID}};
  var key = {{.ControlKey}};
  var relay = {{.RelayURL}};
  var viewer = document.getElementById("viewer");
  var slide = document.getElementById("slide");
  var total = document.getElementById("total");
  var prev = document.getElementById("prev");
  var next = document.getElementById("next");

  function call(path, body) {
    return fetch("/presentations/" + encodeURIComponent(id) + "/presenter" + path, {
      method: "POST",
      headers: { "Content-Type": "application/json", "X-Presenter-Key": key },
      body: JSON.stringify(body || {})
    }).then(function (r) {
      if (!r.ok) { throw new Error("presenter request failed: " + r.status); }
      return r.json();
    });
  }
  // Previous and Next are the only guard on the slide range.
  function render(s) {
    if (!s.current_slide) { return; }
    slide.textContent = s.current_slide;
    total.textContent = s.total_slides;
    prev.disabled = s.current_slide <= 1;
    next.disabled = s.current_slide >= s.total_slides;
  }
  function navigate(direction) {
    prev.disabled = true;
    next.disabled = true;
    call("/navigate", { direction: direction }).then(render).catch(function (err) {
      console.warn(err);
      return fetch("/presentations/" + encodeURIComponent(id) + "/presenter/state", {
        headers: { "X-Presenter-Key": key }
      }).then(function (r) { return r.json(); }).then(render);
    });
  }
  prev.onclick = function () { navigate("prev"); };
  next.onclick = function () { navigate("next"); };
  document.getElementById("audience").onclick = function () {
    call("/audience").then(function (s) {
      render(s);
      if (s.audience_url) { window.open(s.audience_url, "audience", "width=1280,height=720"); }
    }).catch(function (err) { console.warn(err); });
  };

  if (!relay) { return; }
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + location.host + relay);
  ws.onmessage = function (event) {
    var msg;
    try { msg = JSON.parse(event.data); } catch (e) { return; }
    if (!msg || msg.type !== "KEY") { return; }
    try {
      var target = viewer.contentWindow || viewer;
      target.focus();
      target.dispatchEvent(new KeyboardEvent("keydown", { key: msg.key, bubbles: true }));
    } catch (e) {
      console.warn("key dispatch failed", e);
    }
  };
})();
</script>
</body>
</html>
`))

// RenderAudience writes the audience page. An empty ViewURL renders a
// placeholder instead of the viewer.
func RenderAudience(w io.Writer, data PageData) error {
	return audiencePage.Execute(w, data)
}

// RenderPresenter writes the presenter page. Previous is disabled on the
// first slide and Next on the last.
func RenderPresenter(w io.Writer, data PageData) error {
	return presenterPage.Execute(w, data)
}
