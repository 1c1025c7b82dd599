package quill

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/quill/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// renderSitemap lists the home page, one index per kind, and every
// published record.
func (a *App) renderSitemap(c echo.Context, all []content.Record) error {
	base := a.Config.URL
	urls := []sitemapURL{{Loc: BuildURL(base)}}
	for _, kind := range content.Kinds() {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, kind.Dir())})
	}
	for _, r := range all {
		lastMod := ""
		if t, ok := content.ParseDate(r.Date); ok {
			lastMod = content.Today(t)
		}
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, r.Kind.Dir(), r.Slug),
			LastMod: lastMod,
		})
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
