package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/msomdec/client-registry/internal/domain"
	"github.com/msomdec/client-registry/internal/service"
)

const iconField = "characterIcon"

// ClientHandler serves the /api/clients endpoints.
type ClientHandler struct {
	clients   *service.ClientService
	maxUpload int64
}

// NewClientHandler creates a new ClientHandler. maxUpload bounds the size of
// an uploaded character icon.
func NewClientHandler(clients *service.ClientService, maxUpload int64) *ClientHandler {
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxImageSize
	}
	return &ClientHandler{clients: clients, maxUpload: maxUpload}
}

// clientForm holds the raw client fields from a JSON or form request.
type clientForm struct {
	ClaveCliente any
	Nombre       string
	Celular      string
	Email        string
	Icon         any
}

// HandleCreate creates a client from JSON or multipart form data. The icon
// may be a number 0-9 or an uploaded file in the characterIcon field.
// POST /api/clients
func (h *ClientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	form, err := h.readClientForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var missing []string
	if isBlank(form.ClaveCliente) {
		missing = append(missing, "claveCliente")
	}
	missing = append(missing, missingStrings(map[string]string{
		"nombre":  form.Nombre,
		"celular": form.Celular,
		"email":   form.Email,
	}, "nombre", "celular", "email")...)
	if len(missing) > 0 {
		writeMissingFields(w, "claveCliente, nombre, celular and email are required.", missing)
		return
	}
	if form.Icon == nil {
		writeMissingFields(w, "characterIcon (file or number) is required.", []string{iconField})
		return
	}

	client, err := h.clients.Create(r.Context(), service.CreateClientInput{
		ClaveCliente:  form.ClaveCliente,
		Nombre:        form.Nombre,
		Celular:       form.Celular,
		Email:         form.Email,
		CharacterIcon: form.Icon,
	})
	if err != nil {
		writeServiceError(w, r, "create client", err)
		return
	}
	slog.Info("client created", "claveCliente", client.ClaveCliente, "userID", actingUser(r))

	writeSuccess(w, http.StatusCreated, "Client created successfully.", nil)
}

// HandleUpdate applies a partial update to the client named in the path.
// PUT /api/clients/{claveCliente}
func (h *ClientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("claveCliente")

	form, err := h.readClientForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if form.Nombre == "" && form.Celular == "" && form.Email == "" && form.Icon == nil {
		writeMissingFields(w, "Provide at least one field to update: nombre, celular, email or characterIcon.",
			[]string{"nombre", "celular", "email", iconField})
		return
	}

	client, err := h.clients.Update(r.Context(), service.UpdateClientInput{
		ClaveCliente:  key,
		Nombre:        form.Nombre,
		Celular:       form.Celular,
		Email:         form.Email,
		CharacterIcon: form.Icon,
	})
	if err != nil {
		writeServiceError(w, r, "update client", err)
		return
	}
	slog.Info("client updated", "claveCliente", client.ClaveCliente, "userID", actingUser(r))

	writeSuccess(w, http.StatusOK, "Client updated successfully.", envelope{
		"client": toClientDTO(client),
	})
}

// HandleGet returns a single client.
// GET /api/clients/{claveCliente}
func (h *ClientHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	client, err := h.clients.Get(r.Context(), r.PathValue("claveCliente"))
	if err != nil {
		writeServiceError(w, r, "get client", err)
		return
	}

	writeSuccess(w, http.StatusOK, "Client found.", envelope{
		"client": toClientDTO(client),
	})
}

// HandleGetPage returns one page of clients. totalClients is the number of
// clients on the returned page.
// GET /api/clients/page/{page}
func (h *ClientHandler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	// A page that is not a number falls back to the first page. An explicit
	// 0 or negative page is still out of range.
	requested, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		requested = 1
	}

	page, err := h.clients.GetPage(r.Context(), requested)
	if err != nil {
		writeServiceError(w, r, "get client page", err)
		return
	}

	writeSuccess(w, http.StatusOK, "Clients retrieved successfully.", envelope{
		"page":         page.Page,
		"totalPages":   page.TotalPages,
		"clients":      toClientDTOs(page.Clients),
		"totalClients": page.Count,
	})
}

// HandleDelete removes a client and its hosted avatar.
// DELETE /api/clients/{claveCliente}
func (h *ClientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.clients.Delete(r.Context(), r.PathValue("claveCliente"))
	if err != nil {
		writeServiceError(w, r, "delete client", err)
		return
	}
	slog.Info("client deleted", "claveCliente", deleted.ClaveCliente, "userID", actingUser(r))

	writeSuccess(w, http.StatusOK, "Client deleted successfully.", nil)
}

// readClientForm decodes the request according to its content type.
func (h *ClientHandler) readClientForm(w http.ResponseWriter, r *http.Request) (clientForm, error) {
	// Leave room for the text fields and multipart framing around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return h.readMultipart(r)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return clientForm{}, errors.New("invalid form body")
		}
		return formValues(r), nil
	default:
		return readClientJSON(r)
	}
}

func (h *ClientHandler) readMultipart(r *http.Request) (clientForm, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return clientForm{}, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return clientForm{}, errors.New("invalid multipart body")
	}

	form := formValues(r)

	file, header, err := r.FormFile(iconField)
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
		if err != nil {
			return clientForm{}, errors.New("could not read characterIcon file")
		}
		// The part's Content-Type is optional; the stored type is sniffed
		// from the bytes either way.
		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		form.Icon = &domain.ImageUpload{
			FieldName:   iconField,
			Filename:    header.Filename,
			ContentType: contentType,
			Data:        data,
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		return clientForm{}, errors.New("invalid characterIcon file")
	}
	return form, nil
}

func formValues(r *http.Request) clientForm {
	form := clientForm{
		Nombre:  r.FormValue("nombre"),
		Celular: r.FormValue("celular"),
		Email:   r.FormValue("email"),
	}
	if v := r.FormValue("claveCliente"); v != "" {
		form.ClaveCliente = v
	}
	if v := r.FormValue(iconField); v != "" {
		form.Icon = v
	}
	return form
}

func readClientJSON(r *http.Request) (clientForm, error) {
	var body map[string]any
	if err := readJSON(r, &body); err != nil {
		if errors.Is(err, io.EOF) {
			return clientForm{}, nil
		}
		return clientForm{}, errors.New("invalid request body")
	}

	form := clientForm{
		ClaveCliente: body["claveCliente"],
		Nombre:       textValue(body["nombre"]),
		Celular:      textValue(body["celular"]),
		Email:        textValue(body["email"]),
		Icon:         body[iconField],
	}
	if s, ok := form.Icon.(string); ok && s == "" {
		form.Icon = nil
	}
	return form, nil
}

// textValue accepts JSON strings and numbers, so a phone sent as a number
// still validates as digits.
func textValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}
