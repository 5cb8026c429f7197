package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/dfryer1193/dailycomic/api"
	"github.com/dfryer1193/dailycomic/comic/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// eventBuffer is how many refresh events a slow stream client may lag behind before events are dropped.
const eventBuffer = 8

type ComicHandler struct {
	image     ImageSource
	scheduler Scheduler
}

func NewComicHandler(image ImageSource, scheduler Scheduler) *ComicHandler {
	return &ComicHandler{
		image:     image,
		scheduler: scheduler,
	}
}

// GetImage serves the cached comic exactly as it was downloaded.
func (h *ComicHandler) GetImage(c *gin.Context) {
	data, err := h.image.ImageBytes(c.Request.Context())
	if errors.Is(err, domain.ErrNoImage) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no comic cached yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read comic"})
		return
	}

	if updated := h.image.LastUpdated(); !updated.IsZero() {
		c.Header("Last-Modified", updated.UTC().Format(http.TimeFormat))
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

func (h *ComicHandler) GetState(c *gin.Context) {
	state, _ := h.image.State()
	resp := api.ComicState{
		EntityID:        h.image.EntityID(),
		State:           state,
		RefreshInterval: h.scheduler.Interval().String(),
	}

	if latest := h.image.Latest(); latest != nil {
		resp.PublicationDate = latest.PublicationDate
		resp.ImageURL = latest.ImageURL
	}
	if updated := h.image.LastUpdated(); !updated.IsZero() {
		resp.ImageLastUpdated = &updated
	}

	c.JSON(http.StatusOK, resp)
}

// PostRefresh is the manual "refresh now" trigger. The refresh runs in the background.
func (h *ComicHandler) PostRefresh(c *gin.Context) {
	h.scheduler.RequestRefresh()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh requested"})
}

// GetEvents streams a server-sent "refresh" event after every refresh cycle.
func (h *ComicHandler) GetEvents(c *gin.Context) {
	events := make(chan api.RefreshEvent, eventBuffer)
	unsubscribe := h.scheduler.Subscribe(func(result *domain.FetchResult) {
		evt := api.RefreshEvent{Updated: result != nil}
		if result != nil {
			evt.PublicationDate = result.PublicationDate
		}
		select {
		case events <- evt:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case evt := <-events:
			c.SSEvent("refresh", evt)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
