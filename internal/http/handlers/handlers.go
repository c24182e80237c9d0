// handlers реализует REST-обработчики wallet-сервиса.
//
// Слой отвечает за форму: строгий разбор JSON, проверку обязательных полей
// и сериализацию ответов. Бизнес-правила и ошибки живут в service;
// маппинг ошибок на статусы — в internal/errors.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/go-wallet-service/internal/service"
)

// Handlers агрегирует зависимости HTTP-слоя.
type Handlers struct {
	svc *service.Service
}

// New создаёт набор обработчиков поверх сервисного слоя.
func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
