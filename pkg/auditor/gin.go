package auditor

import (
	"github.com/gin-gonic/gin"
)

const (
	// ContextAuditExtra holds the map[string]any of fields added with AddAuditContext.
	ContextAuditExtra = "auditor.extra"

	contextAuditActive = "auditor.active"
)

// Log returns a handler that audits the rest of the chain under actionID.
// Place it before the route handler:
//
//	r.POST("/users", a.Log("CREATE_USER", "Create user"), createUser)
func (a *Auditor) Log(actionID, description string) gin.HandlerFunc {
	action := Action{ID: actionID, Description: description}
	return func(c *gin.Context) {
		a.audit(c, action)
	}
}

// Middleware audits requests whose route was registered with Register.
// Other requests pass through.
func (a *Auditor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		action, ok := a.Lookup(c.Request.Method, c.FullPath())
		if !ok {
			c.Next()
			return
		}
		a.audit(c, action)
	}
}

// AddAuditContext adds a top-level field to the record of the current
// request.
func AddAuditContext(c *gin.Context, key string, value any) {
	extra, ok := c.Get(ContextAuditExtra)
	m, _ := extra.(map[string]any)
	if !ok || m == nil {
		m = make(map[string]any)
		c.Set(ContextAuditExtra, m)
	}
	m[key] = value
}

func (a *Auditor) audit(c *gin.Context, action Action) {
	if a.opts.Skip || c.GetBool(contextAuditActive) {
		c.Next()
		return
	}
	c.Set(contextAuditActive, true)

	req := CaptureRequest(c.Request, a.opts.bodyLimit())
	req.Start = a.now()
	req.RoutePath = c.FullPath()

	c.Next()

	resp := &ResponseSnapshot{
		StatusCode: c.Writer.Status(),
		Header:     c.Writer.Header().Clone(),
		Written:    int64(max(c.Writer.Size(), 0)),
		End:        a.now(),
	}
	if last := c.Errors.Last(); last != nil {
		resp.Err = last.Error()
	}

	var extra map[string]any
	if v, ok := c.Get(ContextAuditExtra); ok {
		extra, _ = v.(map[string]any)
	}
	a.finish(c.Request, action, req, resp, extra)
}
