package output

import "strconv"

// ReloadClient returns the inline script that reloads the page when the dev
// server announces a finished pass on the websocket at path.
func ReloadClient(path string) string {
	return `(function () {
  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var url = proto + location.host + ` + strconv.Quote(path) + `;
  function connect() {
    var ws = new WebSocket(url);
    ws.onmessage = function (event) {
      if (event.data === "reload") {
        location.reload();
      }
    };
    ws.onclose = function () {
      setTimeout(connect, 1000);
    };
  }
  connect();
})();
`
}
