package devserver

import "html/template"

type indexData struct {
	Title string
}

// indexTemplate hosts the browser canvas. The page fetches the snapshot,
// hands it to the wasm client through window.tmcanvasTopicmap and reloads
// when the server reports a new version.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  html, body { margin: 0; height: 100%; overflow: hidden; font: 13px sans-serif; }
  #tmcanvas { display: block; width: 100vw; height: 100vh; }
  #status { position: fixed; right: 8px; bottom: 8px; color: #b00; }
</style>
</head>
<body>
<canvas id="tmcanvas"></canvas>
<div id="status"></div>
<script src="/wasm_exec.js"></script>
<script>
(async () => {
  const status = document.getElementById("status");
  const res = await fetch("/topicmap.json", { cache: "no-store" });
  window.tmcanvasTopicmap = await res.text();
  let version = res.headers.get("X-Topicmap-Version");

  const go = new Go();
  const wasm = await WebAssembly.instantiateStreaming(fetch("/tmcanvas.wasm"), go.importObject);
  go.run(wasm.instance);

  const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
  ws.onopen = () => ws.send(JSON.stringify({ type: "HELLO" }));
  ws.onmessage = (e) => {
    const msg = JSON.parse(e.data);
    if (msg.type === "RELOAD" && String(msg.version) !== version) {
      location.reload();
    } else if (msg.type === "ERROR") {
      status.textContent = msg.message;
    }
  };
})().catch((err) => {
  document.getElementById("status").textContent = String(err);
});
</script>
</body>
</html>
`))
