package adapters

import (
	"net/http"

	"github.com/announa/blogpost/internal/domain"
	postservice "github.com/announa/blogpost/internal/service/post-service"
	productservice "github.com/announa/blogpost/internal/service/product-service"
	"github.com/gin-gonic/gin"
)

func (r *RestAPI) listPosts(c *gin.Context) {
	var filter domain.PostFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		r.badRequest(c, err)
		return
	}
	result, err := r.services.Posts.List(c.Request.Context(), filter)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *RestAPI) getPost(c *gin.Context) {
	post, err := r.services.Posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (r *RestAPI) createPost(c *gin.Context) {
	var in postservice.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		r.badRequest(c, err)
		return
	}
	author, ok := actor(c)
	if !ok {
		return
	}
	post, err := r.services.Posts.Create(c.Request.Context(), author, in)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (r *RestAPI) updatePost(c *gin.Context) {
	var in postservice.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		r.badRequest(c, err)
		return
	}
	editor, ok := actor(c)
	if !ok {
		return
	}
	post, err := r.services.Posts.Update(c.Request.Context(), editor, c.Param("id"), in)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (r *RestAPI) deletePost(c *gin.Context) {
	editor, ok := actor(c)
	if !ok {
		return
	}
	if err := r.services.Posts.Delete(c.Request.Context(), editor, c.Param("id")); err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *RestAPI) listProducts(c *gin.Context) {
	var filter domain.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		r.badRequest(c, err)
		return
	}
	result, err := r.services.Products.List(c.Request.Context(), filter)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *RestAPI) getProduct(c *gin.Context) {
	product, err := r.services.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (r *RestAPI) createProduct(c *gin.Context) {
	var in productservice.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		r.badRequest(c, err)
		return
	}
	product, err := r.services.Products.Create(c.Request.Context(), in)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (r *RestAPI) updateProduct(c *gin.Context) {
	var in productservice.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		r.badRequest(c, err)
		return
	}
	product, err := r.services.Products.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (r *RestAPI) deleteProduct(c *gin.Context) {
	if err := r.services.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		r.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
