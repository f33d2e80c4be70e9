// Package search expone la búsqueda semántica de productos. Delega el ranking
// al modelo NLP externo y, si el modelo no responde, degrada a una
// coincidencia por palabras sobre el título y la descripción.
package search

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/swaply/swaply-api/internal/config"
	"github.com/swaply/swaply-api/internal/models"
	"github.com/swaply/swaply-api/internal/store"
)

// Resultados por defecto cuando no se pide un tope
const defaultResultados = 20

// SearchService consulta el modelo NLP y arma los resultados con el estado
// local de productos
type SearchService struct {
	cfg        *config.Config
	state      *store.AppState
	httpClient *http.Client
	log        *zap.Logger
}

// NewSearchService crea una nueva instancia de SearchService
func NewSearchService(cfg *config.Config, state *store.AppState, log *zap.Logger) *SearchService {
	return &SearchService{
		cfg:        cfg,
		state:      state,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// resultadoNLP es una fila del modelo: el producto y su score de similitud
type resultadoNLP struct {
	OfferID string  `json:"offer_id"`
	Score   float64 `json:"score"`
}

// ProductoConScore es un producto anotado con su similitud (0-100)
type ProductoConScore struct {
	models.Product
	SimilarityScore int `json:"similarityScore"`
}

// SemanticSearch busca productos por similitud con la consulta. El modelo NLP
// aporta los scores; los productos que el modelo no conoce reciben un score
// básico por coincidencia de palabras.
func (s *SearchService) SemanticSearch(c fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "El parámetro 'query' es obligatorio",
		})
	}

	category := c.Query("category")
	location := c.Query("location")
	n := defaultResultados
	if v, err := strconv.Atoi(c.Query("n")); err == nil && v > 0 {
		n = v
	}

	scores := s.consultarModelo(query, category, n)

	st := s.state.Snapshot()
	var out []ProductoConScore
	for _, p := range st.Products {
		if p.Status != models.ProductPublished || !p.Available {
			continue
		}
		if category != "" && category != "Todos" && !contieneInsensible(p.Category, category) {
			continue
		}
		if location != "" && location != "Todas" && !contieneInsensible(p.Location, location) {
			continue
		}

		score, conocido := scores[p.ID]
		if !conocido {
			score = scoreBasico(query, p)
		}
		out = append(out, ProductoConScore{Product: p, SimilarityScore: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SimilarityScore > out[j].SimilarityScore
	})
	if len(out) > n {
		out = out[:n]
	}

	return c.JSON(fiber.Map{"products": out, "count": len(out)})
}

// consultarModelo pide el ranking al modelo NLP. Un modelo caído no tumba la
// búsqueda: se registra el error y se devuelve un mapa vacío.
func (s *SearchService) consultarModelo(query, category string, n int) map[string]int {
	scores := map[string]int{}

	q := url.Values{}
	q.Set("query", query)
	q.Set("n", strconv.Itoa(n))
	if category != "" && category != "Todos" {
		q.Set("category", strings.ToLower(category))
	} else {
		q.Set("category", "")
	}

	endpoint := fmt.Sprintf("%s/nlp/search?%s", s.cfg.NLPModelURL, q.Encode())
	resp, err := s.httpClient.Get(endpoint)
	if err != nil {
		s.log.Warn("⚠️ El modelo NLP no respondió, se usa la búsqueda básica", zap.Error(err))
		return scores
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Warn("⚠️ El modelo NLP respondió con error, se usa la búsqueda básica",
			zap.Int("status", resp.StatusCode))
		return scores
	}

	var body struct {
		Results []resultadoNLP `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		s.log.Warn("⚠️ Respuesta del modelo NLP ilegible", zap.Error(err))
		return scores
	}

	for _, r := range body.Results {
		scores[r.OfferID] = int(math.Round(r.Score * 100))
	}
	return scores
}

// scoreBasico puntúa por coincidencia de texto: la frase completa vale 30 y
// las coincidencias parciales de palabras hasta 20
func scoreBasico(query string, p models.Product) int {
	queryLower := strings.ToLower(query)
	texto := strings.ToLower(p.Title + " " + p.Description)

	if strings.Contains(texto, queryLower) {
		return 30
	}

	var palabras []string
	for _, w := range strings.Fields(queryLower) {
		if len(w) > 2 {
			palabras = append(palabras, w)
		}
	}
	if len(palabras) == 0 {
		return 0
	}

	matches := 0
	for _, w := range palabras {
		if strings.Contains(texto, w) {
			matches++
		}
	}
	if matches == 0 {
		return 0
	}
	return int(math.Round(float64(matches) / float64(len(palabras)) * 20))
}

func contieneInsensible(a, b string) bool {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	return strings.Contains(a, b) || strings.Contains(b, a)
}
