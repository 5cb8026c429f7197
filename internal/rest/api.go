package rest

import (
	"time"

	"github.com/dfryer1193/dailycomic/comic/application"
	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/gin-gonic/gin"
)

// ImageSource is the comic image entity as seen by the HTTP layer.
type ImageSource interface {
	domain.ImageProvider
	EntityID() string
	LastUpdated() time.Time
	Latest() *domain.FetchResult
}

// Scheduler is the part of the coordinator the HTTP layer drives.
type Scheduler interface {
	RequestRefresh()
	Subscribe(l application.Listener) func()
	Interval() time.Duration
}

func NewApi(router *gin.Engine, image ImageSource, scheduler Scheduler) {
	h := NewComicHandler(image, scheduler)

	comicV1 := router.Group("comic/v1")
	{
		comicV1.GET("/image", h.GetImage)
		comicV1.GET("/state", h.GetState)
		comicV1.POST("/refresh", h.PostRefresh)
		comicV1.GET("/events", h.GetEvents)
	}
}
