package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const notFoundPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>404 Not Found</title>
</head>
<body>
<h1>Not Found</h1>
<p>The requested resource could not be found.</p>
<p>Badges live at <code>accounts/{account}/monitors/{id}</code>.</p>
</body>
</html>
`

// NotFound answers with the HTML 404 page. Used as the router fallback and
// when a monitor payload cannot be understood.
func NotFound(c *gin.Context) {
	c.Data(http.StatusNotFound, "text/html; charset=UTF-8", []byte(notFoundPage))
}
