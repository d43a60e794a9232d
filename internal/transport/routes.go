package transport

import "github.com/gin-gonic/gin"

// RegisterRoutes вешает API на роутер, архив отдается с /archive
func RegisterRoutes(r gin.IRoutes, h *BatchHandler) {
	r.GET("/ping", h.SimplePinger)
	r.GET("/models", h.Models)             // список моделей
	r.POST("/batches", h.CreateBatch)      // прогон батча
	r.GET("/batches/progress", h.Progress) // прогресс текущего батча
	r.GET("/batches", h.GetHistory)        // история батчей с пагинацией
	r.GET("/results", h.ListResults)       // результаты текущего батча
	r.GET("/results/:name", h.LoadResult)  // скачать один результат
	r.DELETE("/results", h.ClearResults)   // "обработать новый батч"
	r.GET("/archive", h.LoadArchive)       // все результаты одним zip
}
