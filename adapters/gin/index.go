package relaygin

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const indexPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width,initial-scale=1" />
  <title>SofolPay RealTime Server Is Running</title>
  <style>
    body, html {
      height: 100%;
      margin: 0;
      font-family: monospace;
      background-color: #014401;
      color: #ffffff;
      display: flex;
      align-items: center;
      justify-content: center;
    }
    h1 { font-weight: 800; letter-spacing: -0.05em; }
  </style>
</head>
<body>
  <h1>SofolPay RealTime Server Is Running</h1>
</body>
</html>
`

// HandleIndexGET serves the static informational page.
func HandleIndexGET(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexPage))
}
