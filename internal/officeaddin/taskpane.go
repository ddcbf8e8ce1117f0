package officeaddin

import (
	"html/template"
	"io"
)

var taskPane = template.Must(template.New("taskpane").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Lectern Presenter Add-in</title>
<script src="https://appsforoffice.microsoft.com/lib/1/hosted/office.js"></script>
</head>
<body>
<p id="status">Connecting...</p>
<script>
(function () {
  var socketPath = {{.}};
  var status = document.getElementById("status");
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";

  function reply(ws, id, result, error) {
    var msg = { jsonrpc: "2.0", id: id };
    if (error) { msg.error = { code: -32603, message: String(error) }; } else { msg.result = result; }
    ws.send(JSON.stringify(msg));
  }
  function asyncResult(result) {
    var ok = result.status === Office.AsyncResultStatus.Succeeded;
    return { status: ok ? "succeeded" : "failed", value: ok ? result.value : undefined, error: ok ? undefined : (result.error && result.error.message) };
  }

  var handlers = {
    "office.onReady": function (params, done) {
      Office.onReady(function (info) { done({ host: String(info.host), platform: String(info.platform) }); });
    },
    "document.getSelectedDataAsync": function (params, done) {
      Office.context.document.getSelectedDataAsync(Office.CoercionType.SlideRange, { valueFormat: params.valueFormat }, function (r) { done(asyncResult(r)); });
    },
    "document.goToByIdAsync": function (params, done) {
      Office.context.document.goToByIdAsync(params.id, Office.GoToType.Slide, function (r) { done(asyncResult(r)); });
    },
    "document.startPresentationAsync": function (params, done) {
      Office.context.document.startPresentationAsync(function (r) { done(asyncResult(r)); });
    },
    "document.stopPresentationAsync": function (params, done) {
      Office.context.document.stopPresentationAsync(function (r) { done(asyncResult(r)); });
    }
  };

  function connect() {
    var ws = new WebSocket(scheme + location.host + socketPath);
    ws.onopen = function () { status.textContent = "Connected"; };
    ws.onclose = function () { status.textContent = "Disconnected, retrying..."; setTimeout(connect, 2000); };
    ws.onmessage = function (event) {
      var req;
      try { req = JSON.parse(event.data); } catch (e) { return; }
      var handler = handlers[req.method];
      if (!handler) { reply(ws, req.id, null, "method not found"); return; }
      try {
        handler(req.params || {}, function (result) { reply(ws, req.id, result); });
      } catch (e) {
        reply(ws, req.id, null, e);
      }
    };
  }
  if (!window.Office) { status.textContent = "Office.js is not loaded"; return; }
  connect();
})();
</script>
</body>
</html>
`))

// RenderTaskPane writes the add-in task pane page that connects back to
// socketPath.
func RenderTaskPane(w io.Writer, socketPath string) error {
	return taskPane.Execute(w, socketPath)
}
