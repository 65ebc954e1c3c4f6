package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// RegisterStatic serves the files under dir at "/" with dir/index.html as
// the root document. It reports false, registering nothing, when dir is
// empty or not a directory.
func RegisterStatic(engine *gin.Engine, dir string) bool {
	if dir == "" {
		return false
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return false
	}

	files := http.Dir(dir)
	index := filepath.Join(dir, "index.html")

	engine.GET("/", func(c *gin.Context) {
		c.File(index)
	})

	engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusNotFound)
			return
		}

		f, err := files.Open(c.Request.URL.Path)
		if err != nil {
			c.Status(http.StatusNotFound)
			return
		}

		stat, err := f.Stat()
		_ = f.Close()

		if err != nil || stat.IsDir() {
			c.Status(http.StatusNotFound)
			return
		}

		c.FileFromFS(c.Request.URL.Path, files)
	})

	return true
}
